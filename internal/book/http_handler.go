package book

import (
	"encoding/json"
	"errors"
	"net/http"

	"booktrack/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type bookReq struct {
	Title           string  `json:"titulo" validate:"required,max=100"`
	Author          string  `json:"autor" validate:"required,max=100"`
	Genre           string  `json:"genero" validate:"required"`
	PublicationYear *int    `json:"anoPublicacao" validate:"omitempty,gte=1000"`
	Description     string  `json:"descricao" validate:"max=500"`
	CoverURL        *string `json:"capa"`
	PageCount       *int    `json:"totalPaginas" validate:"omitempty,gte=1"`
}

func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListByOwner(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		writeBookError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, books, map[string]interface{}{"total": len(books)})
}

func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	books, err := h.service.Search(r.Context(), httpx.UserIDFrom(r), term)
	if err != nil {
		writeBookError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, books, map[string]interface{}{"total": len(books)})
}

func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"), httpx.UserIDFrom(r))
	if err != nil {
		writeBookError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b := &Book{
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		CoverURL:        req.CoverURL,
		PageCount:       req.PageCount,
	}
	created, err := h.service.Create(r.Context(), b, httpx.UserIDFrom(r))
	if err != nil {
		writeBookError(r, w, err)
		return
	}
	httpx.JSONSuccessCreated(r, w, created)
}

func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.service.Update(r.Context(), r.PathValue("id"), httpx.UserIDFrom(r), UpdateInput{
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		CoverURL:        req.CoverURL,
		PageCount:       req.PageCount,
	})
	if err != nil {
		writeBookError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id"), httpx.UserIDFrom(r)); err != nil {
		writeBookError(r, w, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

func writeBookError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrForbidden):
		httpx.JSONError(r, w, http.StatusForbidden, "FORBIDDEN", "Access denied", nil)
	case errors.Is(err, ErrEmptySearchTerm):
		httpx.JSONError(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Search term is required", nil)
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
	}
}
