// models/errors.go
package models

import "errors"

// Error taxonomy shared by the handlers. Handlers map these onto HTTP codes:
// validation 400, not-authorized 403, not-found 404, conflict 409.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
)
