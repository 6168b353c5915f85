package progress

import (
	"encoding/json"
	"errors"
	"net/http"

	"booktrack/internal/book"
	"booktrack/internal/httpx"
	"booktrack/internal/status"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type updateReq struct {
	CurrentPage *int   `json:"paginaAtual" validate:"required,gte=0"`
	TotalPages  *int   `json:"totalPaginas" validate:"required,gte=1"`
	Note        string `json:"comentario" validate:"max=500"`
}

type statusReq struct {
	Status string `json:"statusLeitura" validate:"required"`
}

type ratingReq struct {
	Rating *int `json:"nota" validate:"required"`
}

// List returns every progress record of the caller.
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListByOwner(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, records, map[string]interface{}{"total": len(records)})
}

// Get returns the caller's progress for one book.
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), r.PathValue("livroId"), httpx.UserIDFrom(r))
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, rec, nil)
}

// CreateOrUpdate applies a progress update for one book.
func (h *HTTPHandler) CreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	rec, err := h.service.CreateOrUpdate(r.Context(), r.PathValue("livroId"), httpx.UserIDFrom(r), UpdateInput{
		CurrentPage: *req.CurrentPage,
		TotalPages:  *req.TotalPages,
		Note:        req.Note,
	})
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, rec, nil)
}

// Remove deletes the caller's progress for one book and resets the book
// to want-to-read.
func (h *HTTPHandler) Remove(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Remove(r.Context(), r.PathValue("livroId"), httpx.UserIDFrom(r))
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, map[string]interface{}{"removed": removed}, nil)
}

// Statistics returns the caller's aggregate reading summary.
func (h *HTTPHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, stats, nil)
}

// SetBookStatus handles the explicit status endpoint for a book.
func (h *HTTPHandler) SetBookStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.service.SetBookStatus(r.Context(), r.PathValue("id"), httpx.UserIDFrom(r), req.Status)
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// Rate stores the caller's rating for a finished book.
func (h *HTTPHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req ratingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	rec, err := h.service.Rate(r.Context(), r.PathValue("livroId"), httpx.UserIDFrom(r), *req.Rating)
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, rec, nil)
}

// AverageRating returns the mean rating of a book across all readers.
func (h *HTTPHandler) AverageRating(w http.ResponseWriter, r *http.Request) {
	avg, err := h.service.AverageRating(r.Context(), r.PathValue("id"))
	if err != nil {
		writeProgressError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, map[string]interface{}{"notaMedia": avg}, nil)
}

func writeProgressError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, status.ErrInvalid),
		errors.Is(err, ErrInvalidPages),
		errors.Is(err, ErrInvalidRating):
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "NOT_FOUND", "Reading progress not found", nil)
	case errors.Is(err, book.ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, book.ErrForbidden):
		httpx.JSONError(r, w, http.StatusForbidden, "FORBIDDEN", "Access denied", nil)
	case errors.Is(err, ErrDuplicate):
		httpx.JSONError(r, w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrNotFinished):
		httpx.JSONError(r, w, http.StatusUnprocessableEntity, "INVALID_STATE", err.Error(), nil)
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
	}
}
