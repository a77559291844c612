// Package cipher encrypts and decrypts whole database images with a
// passphrase.
//
// The envelope is an age v1 file with a single scrypt recipient. Every
// call to Encrypt draws a fresh scrypt salt, file key and payload nonce,
// so encrypting the same bytes twice yields different ciphertext.
//
// Decrypt reads the complete payload before returning. age authenticates
// the payload in chunks, so streaming the reader straight into the working
// file could leave a partial plaintext behind on a corrupt tail. Buffering
// means callers see either the whole plaintext or an error.
package cipher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// Work factor bounds (scrypt log2(N)).
const (
	DefaultWorkFactor = 18
	MinWorkFactor     = 10
	MaxWorkFactor     = 22
)

var (
	// ErrDecrypt is returned for any ciphertext that fails to open:
	// wrong passphrase, truncation, tampering, or a file that is not an
	// age envelope at all.
	ErrDecrypt = errors.New("decrypt error: corrupt file or wrong password")
	// ErrWrongPassphrase is additionally matched when age reports that the
	// scrypt stanza could not be unwrapped with the given passphrase.
	ErrWrongPassphrase = errors.New("wrong passphrase")
	// ErrEncrypt is returned when a ciphertext could not be produced.
	ErrEncrypt = errors.New("error while encrypting")
	// ErrEmptyPassphrase rejects empty passphrases up front.
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
)

// Codec holds the scrypt cost used for new envelopes.
// The zero value uses DefaultWorkFactor.
type Codec struct {
	WorkFactor int
}

// New returns a Codec with the given work factor, validating the bounds.
// Zero selects the default.
func New(workFactor int) (*Codec, error) {
	if workFactor != 0 && (workFactor < MinWorkFactor || workFactor > MaxWorkFactor) {
		return nil, fmt.Errorf("work factor must be between %d and %d, got %d",
			MinWorkFactor, MaxWorkFactor, workFactor)
	}
	return &Codec{WorkFactor: workFactor}, nil
}

func (c *Codec) workFactor() int {
	if c == nil || c.WorkFactor == 0 {
		return DefaultWorkFactor
	}
	return c.WorkFactor
}

// Encrypt seals plaintext under passphrase.
func (c *Codec) Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	r.SetWorkFactor(c.workFactor())

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	// Close writes the final authenticated chunk.
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	return buf.Bytes(), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *Codec) Decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	id, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	id.SetMaxWorkFactor(MaxWorkFactor)

	r, err := age.Decrypt(bytes.NewReader(ciphertext), id)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, fmt.Errorf("%w: %w", ErrDecrypt, ErrWrongPassphrase)
		}
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return plaintext, nil
}

// EncryptFile reads the file at path and returns its sealed contents.
func (c *Codec) EncryptFile(path, passphrase string) ([]byte, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(plaintext, passphrase)
}

// DecryptFile reads and opens the envelope at path. A missing or
// unreadable file surfaces as the underlying *fs.PathError rather than
// ErrDecrypt, so callers can tell "nothing to open" from "wrong password".
func (c *Codec) DecryptFile(path, passphrase string) ([]byte, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ciphertext, passphrase)
}
