package model

import (
	"errors"
	"strings"
	"time"
)

type Role string

const RoleAdmin Role = "admin"

func (r Role) Valid() bool { return r == RoleAdmin }

// Session is the authenticated identity of the storefront.
// The JSON shape matches what the web client stored under "currentUser".
type Session struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	AvatarURL   string `json:"avatar"`
	IsEphemeral bool   `json:"isDemo,omitempty"`
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("session id is empty")
	}
	if strings.TrimSpace(s.Email) == "" {
		return errors.New("session email is empty")
	}
	if !s.Role.Valid() {
		return errors.New("session role is invalid")
	}
	return nil
}

// Identity is what the remote auth service reports about a signed-in user.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

type CatalogItem struct {
	ID          string `json:"id" firestore:"-"`
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description" firestore:"description"`
	PriceText   string `json:"price" firestore:"price"`
	ImageURL    string `json:"image" firestore:"image"`
	Category    string `json:"category,omitempty" firestore:"category,omitempty"`
	Occasion    string `json:"occasion,omitempty" firestore:"occasion,omitempty"`
}

func (c CatalogItem) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("catalog item id is empty")
	}
	return nil
}

// CatalogPatch holds the fields of an update; nil fields are left untouched.
type CatalogPatch struct {
	Title       *string
	Description *string
	PriceText   *string
	ImageURL    *string
	Category    *string
	Occasion    *string
}

// Apply merges the patch into item and returns the result.
func (p CatalogPatch) Apply(item CatalogItem) CatalogItem {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.PriceText != nil {
		item.PriceText = *p.PriceText
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Occasion != nil {
		item.Occasion = *p.Occasion
	}
	return item
}

// Fields returns the patch as Firestore field paths.
func (p CatalogPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.PriceText != nil {
		out["price"] = *p.PriceText
	}
	if p.ImageURL != nil {
		out["image"] = *p.ImageURL
	}
	if p.Category != nil {
		out["category"] = *p.Category
	}
	if p.Occasion != nil {
		out["occasion"] = *p.Occasion
	}
	return out
}

// LineItem is one catalog item plus a quantity inside the cart.
type LineItem struct {
	CatalogItemID string `json:"id" firestore:"id"`
	Title         string `json:"title" firestore:"title"`
	Description   string `json:"description" firestore:"description"`
	PriceText     string `json:"price" firestore:"price"`
	ImageURL      string `json:"image" firestore:"image"`
	Quantity      int    `json:"quantity" firestore:"quantity"`
}

func (l LineItem) Validate() error {
	if strings.TrimSpace(l.CatalogItemID) == "" {
		return errors.New("line item id is empty")
	}
	if l.Quantity < 1 {
		return errors.New("line item quantity must be at least 1")
	}
	return nil
}

type OrderStatus string

const OrderPending OrderStatus = "pending"

type ShippingAddress struct {
	Name  string `json:"name" firestore:"name"`
	Email string `json:"email" firestore:"email"`
}

type Order struct {
	ID              string          `json:"id,omitempty" firestore:"-"`
	UserID          string          `json:"userId" firestore:"userId"`
	UserEmail       string          `json:"userEmail" firestore:"userEmail"`
	UserName        string          `json:"userName" firestore:"userName"`
	Items           []LineItem      `json:"items" firestore:"items"`
	Total           float64         `json:"total" firestore:"total"`
	Status          OrderStatus     `json:"status" firestore:"status"`
	CreatedAt       time.Time       `json:"createdAt" firestore:"createdAt"`
	ShippingAddress ShippingAddress `json:"shippingAddress" firestore:"shippingAddress"`
}

// UserProfile is the document kept in the "users" collection.
type UserProfile struct {
	UID       string    `firestore:"uid"`
	Email     string    `firestore:"email"`
	Name      string    `firestore:"name"`
	Role      Role      `firestore:"role"`
	CreatedAt time.Time `firestore:"createdAt"`
}
