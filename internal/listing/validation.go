package listing

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrInvalidFilter = errors.New("invalid filter input")

// ValidationError is a rejected filter input with a message meant for the
// person who typed it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidFilter }

// ValidateSearch rejects search text whose trimmed length is between 1 and
// minLength-1. Empty text is valid and means no search.
func ValidateSearch(text string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinSearchLength
	}
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n > 0 && n < minLength {
		return &ValidationError{
			Field:   "search",
			Message: fmt.Sprintf("search must have at least %d characters", minLength),
		}
	}
	return nil
}

// Validate checks caller-facing filter input before it is normalized. The
// first problem found, in dimension order, is returned.
func (e *Entity[T]) Validate(state FilterState) error {
	for _, d := range e.Dimensions {
		vals := cleanValues(state.Values(d.Name))
		switch d.Kind {
		case KindSearch:
			if err := ValidateSearch(strings.Join(vals, " "), e.minSearchLength()); err != nil {
				var verr *ValidationError
				if errors.As(err, &verr) {
					verr.Field = d.Name
				}
				return err
			}
		case KindSelect:
			if len(vals) > 1 {
				return &ValidationError{Field: d.Name, Message: "only one value may be selected"}
			}
		}
	}
	return nil
}
