// flags.go defines constants for all CLI flag names.
//
// Using constants instead of string literals prevents typos and enables
// compile-time checking when flag names are used in both Flags().Type()
// definitions and GetType() calls.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "regenerate-keys" -> FlagRegenerateKeys).

package extension

import "github.com/spf13/cobra"

// Flag name constants for CLI commands.
const (
	// Boolean flags

	FlagCascade        = "cascade"         // Remove children along with the record
	FlagLocal          = "local"           // Use local config scope
	FlagRegenerateKeys = "regenerate-keys" // Replace a peer's key pair

	// String flags

	FlagDNS        = "dns"        // Peer DNS servers, comma-separated
	FlagEndpoint   = "endpoint"   // Peer endpoint host:port
	FlagIPv4       = "ipv4"       // IPv4 prefix or address (-4)
	FlagIPv6       = "ipv6"       // IPv6 prefix or address (-6)
	FlagKey        = "key"        // Preshared key, base64
	FlagNewName    = "new-name"   // New name for update
	FlagPrivateKey = "privatekey" // Peer private key, base64
	FlagPublicKey  = "pubkey"     // Peer public key, base64
	FlagStatus     = "status"     // Peer status: active or disabled
)

// StringIfChanged returns a pointer to the named string flag's value, or
// nil when the flag was not given. Update commands use it to tell "leave
// alone" from "set to empty".
func StringIfChanged(c *cobra.Command, name string) *string {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, _ := c.Flags().GetString(name)
	return &v
}
