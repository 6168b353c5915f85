package book

import (
	"errors"
	"time"

	"booktrack/internal/status"
)

var (
	// ErrNotFound is returned when a book does not exist.
	ErrNotFound = errors.New("book not found")
	// ErrForbidden is returned when a book belongs to another user.
	ErrForbidden = errors.New("access denied")
)

// Book is a catalog entry owned by a user. JSON tags keep the wire format
// of the original API.
type Book struct {
	ID                 string        `json:"id"`
	OwnerID            string        `json:"usuarioId"`
	Title              string        `json:"titulo"`
	Author             string        `json:"autor"`
	Genre              string        `json:"genero"`
	PublicationYear    *int          `json:"anoPublicacao,omitempty"`
	Description        string        `json:"descricao,omitempty"`
	CoverURL           *string       `json:"capa,omitempty"`
	PageCount          *int          `json:"totalPaginas,omitempty"`
	Status             status.Status `json:"statusLeitura"`
	LastStatusChangeAt time.Time     `json:"dataAtualizacao"`
	CreatedAt          time.Time     `json:"dataCadastro"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}
