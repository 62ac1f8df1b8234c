package account

import "errors"

// Error kinds surfaced by the flows. Anything else returned is a system fault.
var (
	ErrValidation         = errors.New("missing or malformed input")
	ErrConflict           = errors.New("username or email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("admin role required")
	ErrSelfDeletion       = errors.New("cannot delete own account")
	ErrNotFound           = errors.New("user not found")
)

// IsUserError reports whether err is one of the kinds a user can act on,
// as opposed to a storage or system fault.
func IsUserError(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrConflict, ErrInvalidCredentials,
		ErrUnauthenticated, ErrForbidden, ErrSelfDeletion, ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
