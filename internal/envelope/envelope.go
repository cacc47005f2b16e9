// Package envelope implements the authenticated encryption applied to blob
// payloads above the lowest confidentiality tier.
//
// Ciphertext is a sequence of independently sealed chunks so that
// decryption can stream with bounded memory while never releasing
// unauthenticated plaintext. Each chunk of up to 64 KiB plaintext is
// sealed with ChaCha20-Poly1305 under a nonce derived from the recorded
// 12-byte IV: the chunk counter is folded into the last four nonce bytes
// and the final chunk flips a marker bit, so reordering and truncation
// both fail authentication. The recorded tag is the final chunk's tag.
package envelope

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"vaultd/internal/models"
)

const (
	// Algorithm is the identifier recorded in blob metadata.
	Algorithm = "chacha20poly1305-stream"

	// DefaultKeyID labels the master key when none is configured.
	DefaultKeyID = "primary"

	chunkSize = 64 * 1024
	overhead  = chacha20poly1305.Overhead
	nonceSize = chacha20poly1305.NonceSize

	// Bit flipped into nonce byte 7 for the final chunk.
	finalChunkMarker = 0x80
)

var (
	ErrKeyNotConfigured = errors.New("master encryption key is not configured")
	ErrAuthentication   = errors.New("payload authentication failed")
)

// Envelope seals and opens blob payloads with a single 256-bit master key.
type Envelope struct {
	key   []byte
	keyID string
}

// EncryptResult carries one sealed payload plus the metadata that must be
// persisted alongside it to reverse the transform.
type EncryptResult struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
	Algorithm  string
	KeyID      string
}

// New builds an Envelope from a base64-encoded 32-byte master key.
func New(masterKeyBase64, keyID string) (*Envelope, error) {
	masterKeyBase64 = strings.TrimSpace(masterKeyBase64)
	if masterKeyBase64 == "" {
		return nil, ErrKeyNotConfigured
	}
	key, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("master key must be %d bytes after decoding, got %d", chacha20poly1305.KeySize, len(key))
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		keyID = DefaultKeyID
	}
	return &Envelope{key: key, keyID: keyID}, nil
}

// KeyID returns the label of the configured master key.
func (e *Envelope) KeyID() string {
	if e == nil {
		return ""
	}
	return e.keyID
}

// ShouldEncrypt is the single place deciding which confidentiality tiers
// are stored encrypted: only the lowest tier is stored as plaintext.
func ShouldEncrypt(tier models.ConfidentialityTier) bool {
	return tier > models.TierL1
}

// Encrypt seals plaintext under a fresh random IV.
func (e *Envelope) Encrypt(plain []byte) (EncryptResult, error) {
	var zero EncryptResult
	if e == nil || len(e.key) == 0 {
		return zero, ErrKeyNotConfigured
	}
	aead, err := chacha20poly1305.New(e.key)
	if err != nil {
		return zero, fmt.Errorf("initialize chacha20poly1305: %w", err)
	}

	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return zero, fmt.Errorf("generate iv: %w", err)
	}

	ciphertext := make([]byte, 0, len(plain)+((len(plain)/chunkSize)+1)*overhead)
	counter := uint32(0)
	rest := plain
	for {
		n := len(rest)
		final := n <= chunkSize
		if !final {
			n = chunkSize
		}
		ciphertext = aead.Seal(ciphertext, chunkNonce(iv, counter, final), rest[:n], nil)
		rest = rest[n:]
		if final {
			break
		}
		if counter == ^uint32(0) {
			return zero, fmt.Errorf("payload exceeds maximum chunk count")
		}
		counter++
	}

	tag := make([]byte, overhead)
	copy(tag, ciphertext[len(ciphertext)-overhead:])

	return EncryptResult{
		Ciphertext: ciphertext,
		IV:         iv,
		Tag:        tag,
		Algorithm:  Algorithm,
		KeyID:      e.keyID,
	}, nil
}

// DecryptBuffer opens a whole ciphertext buffer. Any tamper of the
// ciphertext or the recorded tag fails hard with ErrAuthentication.
func (e *Envelope) DecryptBuffer(ciphertext, iv, tag []byte) ([]byte, error) {
	r, err := e.DecryptStream(bytes.NewReader(ciphertext), iv, tag)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// DecryptStream returns a reader yielding verified plaintext from a
// ciphertext stream. Memory use is bounded by the chunk size; every byte
// returned has passed authentication. Read errors on src surface as
// decrypt errors.
func (e *Envelope) DecryptStream(src io.Reader, iv, tag []byte) (io.Reader, error) {
	if e == nil || len(e.key) == 0 {
		return nil, ErrKeyNotConfigured
	}
	if src == nil {
		return nil, fmt.Errorf("ciphertext stream is required")
	}
	if len(iv) != nonceSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", nonceSize, len(iv))
	}
	if len(tag) != overhead {
		return nil, fmt.Errorf("tag must be %d bytes, got %d", overhead, len(tag))
	}
	aead, err := chacha20poly1305.New(e.key)
	if err != nil {
		return nil, fmt.Errorf("initialize chacha20poly1305: %w", err)
	}
	return newStreamReader(aead, src, iv, tag), nil
}

func chunkNonce(iv []byte, counter uint32, final bool) []byte {
	nonce := make([]byte, nonceSize)
	copy(nonce, iv)
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], counter)
	for i := range ctr {
		nonce[nonceSize-4+i] ^= ctr[i]
	}
	if final {
		nonce[7] ^= finalChunkMarker
	}
	return nonce
}
