package domain

import "errors"

// Error kinds shared by every layer. Concrete errors wrap one of these with
// fmt.Errorf("%w: ...") so callers can classify them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)
