package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"gigantefleur/storefront/internal/model"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")

	decimalPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)
)

// CartManager owns the ordered line items of the cart. Every mutation is
// written through to the store after the in-memory update.
type CartManager struct {
	store KeyValueStore

	mu    sync.RWMutex
	items []model.LineItem
}

func NewCartManager(store KeyValueStore) *CartManager {
	return &CartManager{store: store}
}

// Restore loads the stored cart. Absent or malformed data yields an empty
// cart; individual invalid or duplicate lines are dropped.
func (c *CartManager) Restore(ctx context.Context) error {
	var stored []model.LineItem
	loadJSON(ctx, c.store, CartKey, &stored)

	items := make([]model.LineItem, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, li := range stored {
		if err := li.Validate(); err != nil {
			log.Printf("[cart] dropping stored line: %v", err)
			continue
		}
		if seen[li.CatalogItemID] {
			continue
		}
		seen[li.CatalogItemID] = true
		items = append(items, li)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Add increments the line for item, or appends a new one.
func (c *CartManager) Add(ctx context.Context, item model.CatalogItem, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(item.ID); i >= 0 {
		c.items[i].Quantity += quantity
	} else {
		c.items = append(c.items, model.LineItem{
			CatalogItemID: item.ID,
			Title:         item.Title,
			Description:   item.Description,
			PriceText:     item.PriceText,
			ImageURL:      item.ImageURL,
			Quantity:      quantity,
		})
	}
	c.persist(ctx)
	return nil
}

func (c *CartManager) Remove(ctx context.Context, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(itemID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	c.persist(ctx)
}

// SetQuantity replaces the line's quantity; a quantity <= 0 removes the line.
func (c *CartManager) SetQuantity(ctx context.Context, itemID string, quantity int) {
	if quantity <= 0 {
		c.Remove(ctx, itemID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(itemID); i >= 0 {
		c.items[i].Quantity = quantity
	}
	c.persist(ctx)
}

func (c *CartManager) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.persist(ctx)
}

// RemoveOrdered takes the quantities of ordered off the cart. Lines added or
// increased after ordered was read are kept.
func (c *CartManager) RemoveOrdered(ctx context.Context, ordered []model.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range ordered {
		i := c.indexOf(o.CatalogItemID)
		if i < 0 {
			continue
		}
		if c.items[i].Quantity > o.Quantity {
			c.items[i].Quantity -= o.Quantity
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	c.persist(ctx)
}

// Items returns a copy of the line items in cart order.
func (c *CartManager) Items() []model.LineItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total sums price times quantity. A price that cannot be parsed counts as 0.
func (c *CartManager) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Total(c.items)
}

func (c *CartManager) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

func (c *CartManager) Contains(itemID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(itemID) >= 0
}

// QuantityOf returns the line's quantity, or 0 when absent.
func (c *CartManager) QuantityOf(itemID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(itemID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *CartManager) indexOf(itemID string) int {
	for i, li := range c.items {
		if li.CatalogItemID == itemID {
			return i
		}
	}
	return -1
}

// persist must be called with c.mu held.
func (c *CartManager) persist(ctx context.Context) {
	items := c.items
	if items == nil {
		items = []model.LineItem{}
	}
	saveJSON(ctx, c.store, CartKey, items)
}

// Total sums price times quantity over items.
func Total(items []model.LineItem) float64 {
	var total float64
	for _, li := range items {
		price, err := ParsePrice(li.PriceText)
		if err != nil {
			continue
		}
		line := price * float64(li.Quantity)
		if math.IsInf(line, 0) || math.IsInf(total+line, 0) {
			continue
		}
		total += line
	}
	return total
}

// ParsePrice parses a price such as "$45" or "45.00". One leading currency
// symbol is stripped; the rest must be a plain decimal number.
func ParsePrice(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if r, size := utf8.DecodeRuneInString(s); size > 0 && !unicode.IsDigit(r) && r != '.' && r != '-' {
		s = s[size:]
	}
	if !decimalPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid price %q", text)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid price %q", text)
	}
	return v, nil
}
