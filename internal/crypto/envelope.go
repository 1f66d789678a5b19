package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

const (
	KeySize   = 32
	nonceSize = 12
	tagSize   = 16
)

var (
	ErrInvalidKeySize = errors.New("crypto: encryption key must be exactly 32 bytes")
	ErrIntegrity      = errors.New("crypto: envelope authentication failed")
)

// Envelope is the at-rest form of one encrypted secret: AES-256-GCM ciphertext
// (base64) with the nonce and authentication tag stored as separate hex fields.
// The three-field shape matches what existing documents already hold.
type Envelope struct {
	Data  string `bson:"data" json:"data"`
	Nonce string `bson:"iv" json:"iv"`
	Tag   string `bson:"tag" json:"tag"`
}

// Cipher seals and opens envelopes under a single process-wide key. There is
// no per-item key derivation or rotation; the key is loaded once at startup.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// ParseKeyHex decodes hex key material from configuration and checks its size.
func ParseKeyHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return key, nil
}

// Seal encrypts plaintext with a freshly random 96-bit nonce. Reusing a nonce
// under the same key would break both confidentiality and authenticity for
// GCM, so the nonce is drawn from crypto/rand on every call and never taken
// from a caller.
func (c *Cipher) Seal(plaintext string) (Envelope, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, err
	}
	out := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct := out[:len(out)-tagSize]
	tag := out[len(out)-tagSize:]
	return Envelope{
		Data:  base64.StdEncoding.EncodeToString(ct),
		Nonce: hex.EncodeToString(nonce),
		Tag:   hex.EncodeToString(tag),
	}, nil
}

// Open decrypts and verifies an envelope. Any tamper with ciphertext, nonce or
// tag, and any malformed field encoding, surfaces as ErrIntegrity; plaintext
// is never returned unless the tag verifies.
func (c *Cipher) Open(env Envelope) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return "", ErrIntegrity
	}
	nonce, err := hex.DecodeString(env.Nonce)
	if err != nil || len(nonce) != nonceSize {
		return "", ErrIntegrity
	}
	tag, err := hex.DecodeString(env.Tag)
	if err != nil || len(tag) != tagSize {
		return "", ErrIntegrity
	}
	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	pt, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(pt), nil
}
