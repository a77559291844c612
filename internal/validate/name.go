// name.go implements record name validation.

package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxName bounds network, VPN and peer names.
const MaxName = 64

// Name validates a network, VPN or peer name. kind is used in messages.
func Name(kind, n string) error {
	if n == "" {
		return fmt.Errorf("%w: empty %s name", ErrInvalidName, kind)
	}
	if !utf8.ValidString(n) {
		return fmt.Errorf("%w: %s name is not valid UTF-8", ErrInvalidName, kind)
	}
	if utf8.RuneCountInString(n) > MaxName {
		return fmt.Errorf("%w: %s name exceeds %d characters", ErrNameTooLong, kind, MaxName)
	}
	if strings.ContainsRune(n, '/') {
		return fmt.Errorf("%w: %s name %q contains '/'", ErrInvalidName, kind, n)
	}
	for _, r := range n {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %s name %q contains whitespace or control characters", ErrInvalidName, kind, n)
		}
	}
	return nil
}
