package handler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/service"
)

const maxUploadBody = 2*service.MaxImageSize + 1<<20

type FlowerResponse struct {
	Item     model.CatalogItem `json:"item"`
	Degraded bool              `json:"degraded"`
}

type OutcomeResponse struct {
	Degraded bool `json:"degraded"`
}

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func (h *Handler) ListFlowers(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Search(r.URL.Query().Get("q"))
	if items == nil {
		items = []model.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetFlower(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateFlower(w http.ResponseWriter, r *http.Request) {
	form, err := parseFlowerForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, outcome, err := h.catalog.Publish(r.Context(), form)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FlowerResponse{Item: item, Degraded: outcome.Degraded()})
}

func (h *Handler) UpdateFlower(w http.ResponseWriter, r *http.Request) {
	form, err := parseFlowerForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, outcome, err := h.catalog.Revise(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FlowerResponse{Item: item, Degraded: outcome.Degraded()})
}

func (h *Handler) DeleteFlower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.catalog.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	outcome := h.catalog.Delete(r.Context(), id)
	writeJSON(w, http.StatusOK, OutcomeResponse{Degraded: outcome.Degraded()})
}

// ReloadFlowers replaces the catalog with the remote view. Local-only
// changes are dropped when the remote is reachable.
func (h *Handler) ReloadFlowers(w http.ResponseWriter, r *http.Request) {
	outcome := h.catalog.Load(r.Context())
	writeJSON(w, http.StatusOK, OutcomeResponse{Degraded: outcome.Degraded()})
}

func writeCatalogError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Error: "invalid form", Fields: vErr.Fields})
	case errors.Is(err, service.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrImageUpload):
		log.Printf("[handler] %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("[handler] catalog error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseFlowerForm reads the multipart upload form. The image part is read
// one byte past the size limit so oversized files fail validation.
func parseFlowerForm(w http.ResponseWriter, r *http.Request) (service.FlowerForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(service.MaxImageSize); err != nil {
		return service.FlowerForm{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	form := service.FlowerForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		return service.FlowerForm{}, fmt.Errorf("invalid image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
	if err != nil {
		return service.FlowerForm{}, fmt.Errorf("failed to read image: %w", err)
	}
	form.Image = &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return form, nil
}
