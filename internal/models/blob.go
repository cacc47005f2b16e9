package models

import (
	"fmt"
	"strings"
	"time"
)

// StorageKind identifies the storage backend a blob was written through.
type StorageKind string

const (
	StorageKindLocal StorageKind = "local"
	StorageKindS3    StorageKind = "s3"
)

var validStorageKinds = map[StorageKind]struct{}{
	StorageKindLocal: {},
	StorageKindS3:    {},
}

func ParseStorageKind(raw string) (StorageKind, error) {
	value := StorageKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("storage kind is required")
	}
	if _, ok := validStorageKinds[value]; !ok {
		return "", fmt.Errorf("invalid storage kind: %s", value)
	}
	return value, nil
}

// Blob is the immutable record of one stored object. The payload itself
// lives in the backend under ObjectKey; when Encrypted is set the backend
// holds ciphertext and the Enc* fields hold what is needed to reverse it.
type Blob struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenant_id"`
	StorageKind  StorageKind         `json:"storage_kind"`
	ObjectKey    string              `json:"object_key"`
	SizeBytes    int64               `json:"size_bytes"`
	ContentHash  string              `json:"content_hash"`
	ContentType  string              `json:"content_type"`
	Tier         ConfidentialityTier `json:"tier"`
	Encrypted    bool                `json:"encrypted"`
	EncAlgorithm string              `json:"enc_algorithm,omitempty"`
	EncKeyID     string              `json:"enc_key_id,omitempty"`
	EncIV        []byte              `json:"enc_iv,omitempty"`
	EncTag       []byte              `json:"enc_tag,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// ValidateEncryptionState checks the tier/encryption invariants: the lowest
// tier is stored as plaintext, every higher tier is stored encrypted with
// complete envelope metadata.
func (b *Blob) ValidateEncryptionState() error {
	if b == nil {
		return fmt.Errorf("blob is required")
	}
	if !b.Tier.Valid() {
		return fmt.Errorf("invalid confidentiality tier: %d", b.Tier)
	}
	if b.Tier == TierL1 {
		if b.Encrypted {
			return fmt.Errorf("tier %s blobs must not be encrypted", b.Tier)
		}
		return nil
	}
	if !b.Encrypted {
		return fmt.Errorf("tier %s blobs must be encrypted", b.Tier)
	}
	if strings.TrimSpace(b.EncAlgorithm) == "" || strings.TrimSpace(b.EncKeyID) == "" ||
		len(b.EncIV) == 0 || len(b.EncTag) == 0 {
		return fmt.Errorf("encrypted blob is missing envelope metadata")
	}
	return nil
}
