package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateEntity checks struct tags on a book, client or rental. Failures wrap
// ErrInvalidOperation.
func validateEntity(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid %s: %s: %w", entityLabel(v), strings.Join(fields, ", "), ErrInvalidOperation)
}

func entityLabel(v any) string {
	switch v.(type) {
	case Book, *Book:
		return "book"
	case Client, *Client:
		return "client"
	case Rental, *Rental:
		return "rental"
	default:
		return fmt.Sprintf("%T", v)
	}
}
