package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"gigantefleur/storefront/internal/model"
)

var ErrItemNotFound = errors.New("catalog item not found")

// Outcome reports whether the remote write of a catalog mutation went
// through. The local mirror is applied either way.
type Outcome int

const (
	RemoteSucceeded Outcome = iota
	RemoteFailed
)

// Degraded is true when the change only exists locally.
func (o Outcome) Degraded() bool { return o == RemoteFailed }

func (o Outcome) String() string {
	if o == RemoteFailed {
		return "remote_failed"
	}
	return "remote_succeeded"
}

// CatalogSync keeps the catalog remote-first with a local mirror. Remote
// failures never surface as errors from Load, Create, Update or Delete; the
// change is applied locally and the Outcome says so. Nothing is retried.
type CatalogSync struct {
	remote FlowerStore
	images ImageStore
	store  KeyValueStore
	now    func() time.Time

	mu    sync.RWMutex
	items []model.CatalogItem
}

// NewCatalogSync wires the catalog owner. images may be nil, in which case
// every upload fails.
func NewCatalogSync(remote FlowerStore, images ImageStore, store KeyValueStore) *CatalogSync {
	return &CatalogSync{
		remote: remote,
		images: images,
		store:  store,
		now:    time.Now,
	}
}

// Load replaces the catalog with the remote view, falling back to the local
// mirror and then to an empty catalog.
func (c *CatalogSync) Load(ctx context.Context) Outcome {
	remote, err := c.remote.GetAll(ctx)
	if err == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.items = append([]model.CatalogItem(nil), remote...)
		c.persist(ctx)
		log.Printf("[catalog] loaded %d items from remote", len(remote))
		return RemoteSucceeded
	}
	log.Printf("[catalog] remote load failed, using local mirror: %v", err)

	var stored []model.CatalogItem
	found := loadJSON(ctx, c.store, CatalogKey, &stored)

	items := make([]model.CatalogItem, 0, len(stored))
	for _, it := range stored {
		if err := it.Validate(); err != nil {
			log.Printf("[catalog] dropping stored item: %v", err)
			continue
		}
		items = append(items, it)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	if !found {
		c.persist(ctx)
	}
	return RemoteFailed
}

// Create adds item remotely and appends it locally. When the remote add
// fails the item gets a millisecond timestamp id.
func (c *CatalogSync) Create(ctx context.Context, item model.CatalogItem) (model.CatalogItem, Outcome) {
	outcome := RemoteSucceeded
	id, err := c.remote.Add(ctx, item)
	if err != nil {
		log.Printf("[catalog] remote create failed, keeping item locally: %v", err)
		outcome = RemoteFailed
		id = strconv.FormatInt(c.now().UnixMilli(), 10)
	}
	item.ID = id

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	c.persist(ctx)
	return item, outcome
}

// Update merges patch into the item with id, remotely and locally.
func (c *CatalogSync) Update(ctx context.Context, id string, patch model.CatalogPatch) Outcome {
	outcome := RemoteSucceeded
	if err := c.remote.Update(ctx, id, patch); err != nil {
		log.Printf("[catalog] remote update of %s failed, updating locally: %v", id, err)
		outcome = RemoteFailed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i] = patch.Apply(c.items[i])
		}
	}
	c.persist(ctx)
	return outcome
}

func (c *CatalogSync) Delete(ctx context.Context, id string) Outcome {
	outcome := RemoteSucceeded
	if err := c.remote.Delete(ctx, id); err != nil {
		log.Printf("[catalog] remote delete of %s failed, deleting locally: %v", id, err)
		outcome = RemoteFailed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]model.CatalogItem, 0, len(c.items))
	for _, it := range c.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	c.persist(ctx)
	return outcome
}

// Items returns a copy of the catalog in order.
func (c *CatalogSync) Items() []model.CatalogItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *CatalogSync) Get(id string) (model.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.CatalogItem{}, ErrItemNotFound
}

// Search matches term against title and description, ignoring case. An
// empty term returns the whole catalog.
func (c *CatalogSync) Search(term string) []model.CatalogItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c.Items()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.CatalogItem
	for _, it := range c.items {
		if strings.Contains(strings.ToLower(it.Title), term) || strings.Contains(strings.ToLower(it.Description), term) {
			out = append(out, it)
		}
	}
	return out
}

// UploadImage stores img under flowers/<unixmillis>-<filename> and returns
// its URL. Unlike catalog writes, a failure here is returned.
func (c *CatalogSync) UploadImage(ctx context.Context, img ImageUpload) (string, error) {
	if c.images == nil {
		return "", fmt.Errorf("%w: no image store configured", ErrImageUpload)
	}
	objectPath := fmt.Sprintf("flowers/%d-%s", c.now().UnixMilli(), img.safeFilename())
	url, err := c.images.Upload(ctx, objectPath, img.contentType(), img.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageUpload, err)
	}
	return url, nil
}

// Publish validates form, uploads its image and creates the item.
func (c *CatalogSync) Publish(ctx context.Context, form FlowerForm) (model.CatalogItem, Outcome, error) {
	if err := form.Validate(true); err != nil {
		return model.CatalogItem{}, RemoteSucceeded, err
	}

	url, err := c.UploadImage(ctx, *form.Image)
	if err != nil {
		return model.CatalogItem{}, RemoteSucceeded, err
	}

	item, outcome := c.Create(ctx, model.CatalogItem{
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		PriceText:   NormalizePrice(form.Price),
		ImageURL:    url,
	})
	return item, outcome, nil
}

// Revise validates form and updates the item with id. The image is replaced
// only when the form carries a new one.
func (c *CatalogSync) Revise(ctx context.Context, id string, form FlowerForm) (model.CatalogItem, Outcome, error) {
	if _, err := c.Get(id); err != nil {
		return model.CatalogItem{}, RemoteSucceeded, err
	}
	if err := form.Validate(false); err != nil {
		return model.CatalogItem{}, RemoteSucceeded, err
	}

	title := strings.TrimSpace(form.Title)
	description := strings.TrimSpace(form.Description)
	price := NormalizePrice(form.Price)
	patch := model.CatalogPatch{Title: &title, Description: &description, PriceText: &price}

	if form.Image != nil {
		url, err := c.UploadImage(ctx, *form.Image)
		if err != nil {
			return model.CatalogItem{}, RemoteSucceeded, err
		}
		patch.ImageURL = &url
	}

	outcome := c.Update(ctx, id, patch)
	item, err := c.Get(id)
	if err != nil {
		// deleted concurrently
		return model.CatalogItem{}, outcome, err
	}
	return item, outcome, nil
}

// persist must be called with c.mu held.
func (c *CatalogSync) persist(ctx context.Context) {
	items := c.items
	if items == nil {
		items = []model.CatalogItem{}
	}
	saveJSON(ctx, c.store, CatalogKey, items)
}
