// Package wgkey generates and checks WireGuard keys.
//
// Keys are 32 bytes, exchanged as standard base64 (44 characters). Private
// keys are X25519 scalars clamped the way the wg tool clamps them, so a key
// generated here is interchangeable with `wg genkey`.
package wgkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeyLen is the raw key size.
const KeyLen = 32

// ErrInvalidKey is returned for anything that is not a base64 32-byte key.
var ErrInvalidKey = errors.New("invalid wireguard key")

// Key is a raw WireGuard key.
type Key [KeyLen]byte

// String returns the base64 form.
func (k Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Parse decodes a base64 key.
func Parse(s string) (Key, error) {
	var k Key
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(b) != KeyLen {
		return k, fmt.Errorf("%w: decoded to %d bytes, want %d", ErrInvalidKey, len(b), KeyLen)
	}
	copy(k[:], b)
	return k, nil
}

func random() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("read random: %w", err)
	}
	return k, nil
}

// NewPrivate returns a fresh clamped private key.
func NewPrivate() (Key, error) {
	k, err := random()
	if err != nil {
		return k, err
	}
	k[0] &= 248
	k[31] = (k[31] & 127) | 64
	return k, nil
}

// NewPreshared returns a fresh preshared key.
func NewPreshared() (Key, error) {
	return random()
}

// Public derives the public key of a private key.
func (k Key) Public() (Key, error) {
	var pub Key
	b, err := curve25519.X25519(k[:], curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	copy(pub[:], b)
	return pub, nil
}

// Pair is a private key with its public key, both base64.
type Pair struct {
	Private string
	Public  string
}

// NewPair generates a key pair.
func NewPair() (Pair, error) {
	priv, err := NewPrivate()
	if err != nil {
		return Pair{}, err
	}
	return PairFromPrivate(priv.String())
}

// PairFromPrivate derives the pair for an existing base64 private key.
func PairFromPrivate(private string) (Pair, error) {
	k, err := Parse(private)
	if err != nil {
		return Pair{}, err
	}
	pub, err := k.Public()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Private: k.String(), Public: pub.String()}, nil
}
