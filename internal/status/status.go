package status

import (
	"errors"
	"fmt"
)

// Status is the reading status shared by books and progress records.
// The three canonical tokens are the persisted values; they are also
// the JSON representation.
type Status string

const (
	WantToRead Status = "quero_ler"
	Reading    Status = "em_leitura"
	Finished   Status = "concluido"
)

// ErrInvalid is returned when a status token is not recognized.
var ErrInvalid = errors.New("invalid status")

// legacyAliases maps the status vocabulary of the first backend variant
// onto the canonical tokens. "Abandonado" has no canonical equivalent
// and is deliberately absent.
var legacyAliases = map[string]Status{
	"nao_iniciado": WantToRead,
	"Não iniciado": WantToRead,
	"Em andamento": Reading,
	"Concluído":    Finished,
	"Concluido":    Finished,
}

// Parse converts a raw token into a Status. Canonical tokens and legacy
// aliases are accepted; anything else fails with ErrInvalid.
func Parse(raw string) (Status, error) {
	switch Status(raw) {
	case WantToRead, Reading, Finished:
		return Status(raw), nil
	}
	if s, ok := legacyAliases[raw]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
}

// Valid reports whether s is one of the three canonical values.
func (s Status) Valid() bool {
	switch s {
	case WantToRead, Reading, Finished:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Derive maps a page position to a reading status. Callers must
// normalize currentPage into [0, totalPages] and guarantee
// totalPages >= 1 before calling.
func Derive(currentPage, totalPages int) Status {
	switch {
	case currentPage == 0:
		return WantToRead
	case currentPage >= totalPages:
		return Finished
	default:
		return Reading
	}
}
