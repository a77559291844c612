// Package validate checks user input for inventory records before it
// reaches the store.
//
// Validation is minimal. Names are identifiers typed on a command line, so
// they may not be empty, contain whitespace or control characters, or
// contain '/' (used to print vpn/peer pairs). Endpoints and DNS lists are
// checked for shape, not reachability.
//
// All errors wrap one of the sentinels in errors.go:
//
//	if errors.Is(err, validate.ErrInvalidName) {
//	    // handle invalid name
//	}
package validate
