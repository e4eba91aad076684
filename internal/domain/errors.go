package domain

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("%w: ...") to add
// context and test with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrNotOwner         = errors.New("not owner")
	ErrConditionsNotMet = errors.New("conditions not met")
	ErrDuplicateData    = errors.New("duplicate data")
	ErrValidation       = errors.New("validation failed")
)

// Kind names the taxonomy entry for err, or "INTERNAL" when err is not one of ours.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNotOwner):
		return "NOT_OWNER"
	case errors.Is(err, ErrConditionsNotMet):
		return "CONDITIONS_NOT_MET"
	case errors.Is(err, ErrDuplicateData):
		return "DUPLICATE_DATA"
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	default:
		return "INTERNAL"
	}
}
