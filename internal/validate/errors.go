// errors.go defines sentinel errors for validation failures.

package validate

import "errors"

var (
	ErrInvalidName     = errors.New("invalid name")
	ErrNameTooLong     = errors.New("name too long")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrInvalidDNS      = errors.New("invalid dns")
)
