package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// translate converts a remote error into the models error taxonomy.
// Errors already in the taxonomy pass through; anything unclassified is treated as transient.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case remote.IsNotFound(err):
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrUnavailable, err)
	}
}

func isTransient(err error) bool {
	return errors.Is(err, models.ErrUnavailable)
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError(field, "must not be blank")
	}
	return nil
}
