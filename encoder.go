package webcmp

import (
	"errors"
	"fmt"

	"github.com/pthm/webcmp/lib/encoding"
)

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// Encodable is implemented by state types that flatten themselves before
// encoding. The generator writes it for struct state types.
type Encodable = encoding.Encodable

// Decodable is implemented by state types that rebuild themselves after
// decoding.
type Decodable = encoding.Decodable

// NewEncoder creates a new encoder with the given encryption key.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// decodeError maps a snapshot decoding failure of component id onto the
// webcmp sentinels, keeping the cause in the message. Failures other than
// a bad signature or ciphertext, including errors returned by a Decodable,
// mean the token does not describe a valid state.
func decodeError(id string, err error) error {
	if err == nil {
		return nil
	}
	sentinel := ErrInvalidFormat
	switch {
	case errors.Is(err, encoding.ErrSignatureInvalid):
		sentinel = ErrSignatureInvalid
	case errors.Is(err, encoding.ErrDecryptFailed):
		sentinel = ErrDecryptFailed
	}
	return fmt.Errorf("%w: %s: %v", sentinel, id, err)
}
