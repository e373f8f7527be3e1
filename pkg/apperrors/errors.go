package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrOrgNotConfigured       = errors.New("organization has no database connection configured")
	ErrMalformedCredentials   = errors.New("stored credentials are not valid JSON")
	ErrUnsupportedDialect     = errors.New("unsupported database dialect")
	ErrCredentialsKeyMismatch = errors.New("credentials were encrypted with a different key")
)
