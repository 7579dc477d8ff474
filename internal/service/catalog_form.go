package service

import (
	"errors"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"
)

const MaxImageSize = 5 << 20

var (
	ErrImageUpload = errors.New("image upload failed")

	pricePattern = regexp.MustCompile(`^\$?\d+(\.\d{2})?$`)
)

// ValidationError maps form fields to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (img ImageUpload) contentType() string {
	if img.ContentType != "" {
		return img.ContentType
	}
	return http.DetectContentType(img.Data)
}

func (img ImageUpload) safeFilename() string {
	name := path.Base(strings.ReplaceAll(img.Filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

// FlowerForm is the admin upload form for a bouquet.
type FlowerForm struct {
	Title       string
	Description string
	Price       string
	Image       *ImageUpload
}

// Validate checks the form before anything is sent remotely. An image is
// required only when creating.
func (f FlowerForm) Validate(requireImage bool) error {
	fields := map[string]string{}

	if strings.TrimSpace(f.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(f.Description) == "" {
		fields["description"] = "Description is required"
	}

	price := strings.TrimSpace(f.Price)
	switch {
	case price == "":
		fields["price"] = "Price is required"
	case !pricePattern.MatchString(price):
		fields["price"] = "Please enter a valid price (e.g., $45 or 45)"
	}

	switch {
	case f.Image == nil:
		if requireImage {
			fields["image"] = "Please select an image"
		}
	case !strings.HasPrefix(f.Image.contentType(), "image/"):
		fields["image"] = "Please select an image file"
	case len(f.Image.Data) > MaxImageSize:
		fields["image"] = "Image size should be less than 5MB"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizePrice prefixes a dollar sign when missing.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	if strings.HasPrefix(price, "$") {
		return price
	}
	return "$" + price
}
