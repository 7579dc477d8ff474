package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gigantefleur/storefront/internal/model"
)

const flowersCollection = "flowers"

// FlowerRepositoryFS stores the catalog in the "flowers" collection.
// The document id is the catalog item id.
type FlowerRepositoryFS struct {
	Client *firestore.Client
}

func NewFlowerRepositoryFS(client *firestore.Client) *FlowerRepositoryFS {
	return &FlowerRepositoryFS{Client: client}
}

func (r *FlowerRepositoryFS) col() (*firestore.CollectionRef, error) {
	if r == nil || r.Client == nil {
		return nil, ErrUnavailable
	}
	return r.Client.Collection(flowersCollection), nil
}

// Add creates a document with a generated id and returns that id.
func (r *FlowerRepositoryFS) Add(ctx context.Context, item model.CatalogItem) (string, error) {
	col, err := r.col()
	if err != nil {
		return "", err
	}
	ref, _, err := col.Add(ctx, item)
	if err != nil {
		return "", fmt.Errorf("failed to add flower: %w", err)
	}
	return ref.ID, nil
}

func (r *FlowerRepositoryFS) GetAll(ctx context.Context) ([]model.CatalogItem, error) {
	col, err := r.col()
	if err != nil {
		return nil, err
	}

	it := col.Documents(ctx)
	defer it.Stop()

	items := []model.CatalogItem{}
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list flowers: %w", err)
		}
		var item model.CatalogItem
		if err := snap.DataTo(&item); err != nil {
			return nil, fmt.Errorf("failed to decode flower %s: %w", snap.Ref.ID, err)
		}
		item.ID = snap.Ref.ID
		items = append(items, item)
	}
	return items, nil
}

// Update writes only the fields present in patch. A missing document is ErrNotFound.
func (r *FlowerRepositoryFS) Update(ctx context.Context, id string, patch model.CatalogPatch) error {
	col, err := r.col()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("flower id is empty")
	}

	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	paths := make([]string, 0, len(fields))
	for k := range fields {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	updates := make([]firestore.Update, 0, len(paths))
	for _, p := range paths {
		updates = append(updates, firestore.Update{Path: p, Value: fields[p]})
	}

	if _, err := col.Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update flower %s: %w", id, err)
	}
	return nil
}

func (r *FlowerRepositoryFS) Delete(ctx context.Context, id string) error {
	col, err := r.col()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("flower id is empty")
	}
	if _, err := col.Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete flower %s: %w", id, err)
	}
	return nil
}
