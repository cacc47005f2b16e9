package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"vaultd/internal/models"
)

const blobColumns = "id, tenant_id, storage_kind, object_key, size_bytes, content_hash, content_type, tier, encrypted, enc_algorithm, enc_key_id, enc_iv, enc_tag, created_at"

// CreateBlob inserts one blob record. Records are immutable; an id or
// object-key collision is an error, never an update.
func (s *Store) CreateBlob(ctx context.Context, blob *models.Blob) error {
	if blob == nil {
		return fmt.Errorf("blob is required")
	}
	if strings.TrimSpace(blob.ID) == "" {
		return fmt.Errorf("blob id is required")
	}
	if strings.TrimSpace(blob.TenantID) == "" {
		return fmt.Errorf("tenant id is required")
	}
	if strings.TrimSpace(blob.ObjectKey) == "" {
		return fmt.Errorf("object key is required")
	}
	if blob.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be >= 0")
	}
	if _, err := models.ParseStorageKind(string(blob.StorageKind)); err != nil {
		return err
	}
	if err := blob.ValidateEncryptionState(); err != nil {
		return err
	}
	createdAt := blob.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (`+blobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		blob.ID,
		blob.TenantID,
		string(blob.StorageKind),
		blob.ObjectKey,
		blob.SizeBytes,
		blob.ContentHash,
		blob.ContentType,
		blob.Tier.String(),
		boolToInt(blob.Encrypted),
		nullIfEmpty(blob.EncAlgorithm),
		nullIfEmpty(blob.EncKeyID),
		nullIfEmpty(hex.EncodeToString(blob.EncIV)),
		nullIfEmpty(hex.EncodeToString(blob.EncTag)),
		dbFormatTime(createdAt),
	)
	return err
}

// FindBlobByID returns one blob record, or nil when absent.
func (s *Store) FindBlobByID(ctx context.Context, id string) (*models.Blob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id)
	return scanBlob(row)
}

// DeleteBlob deletes one blob record. Deleting a missing record is success.
func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE id = ?", id)
	return err
}

func scanBlob(scanner interface {
	Scan(dest ...any) error
}) (*models.Blob, error) {
	blob := models.Blob{}

	var storageKind, tier, createdAt string
	var encrypted int
	var encAlgorithm, encKeyID, encIV, encTag sql.NullString

	err := scanner.Scan(
		&blob.ID,
		&blob.TenantID,
		&storageKind,
		&blob.ObjectKey,
		&blob.SizeBytes,
		&blob.ContentHash,
		&blob.ContentType,
		&tier,
		&encrypted,
		&encAlgorithm,
		&encKeyID,
		&encIV,
		&encTag,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedKind, err := models.ParseStorageKind(storageKind)
	if err != nil {
		return nil, fmt.Errorf("blob %s: %w", blob.ID, err)
	}
	blob.StorageKind = parsedKind

	parsedTier, err := models.ParseConfidentialityTier(tier)
	if err != nil {
		return nil, fmt.Errorf("blob %s: %w", blob.ID, err)
	}
	blob.Tier = parsedTier

	blob.Encrypted = encrypted != 0
	blob.EncAlgorithm = encAlgorithm.String
	blob.EncKeyID = encKeyID.String

	if blob.EncIV, err = decodeNullHex(encIV, "enc_iv", blob.ID); err != nil {
		return nil, err
	}
	if blob.EncTag, err = decodeNullHex(encTag, "enc_tag", blob.ID); err != nil {
		return nil, err
	}

	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = parsedCreated

	return &blob, nil
}

func decodeNullHex(value sql.NullString, column, blobID string) ([]byte, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(value.String)
	if err != nil {
		return nil, fmt.Errorf("blob %s: decode %s: %w", blobID, column, err)
	}
	return decoded, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dbParseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return parsed.UTC(), nil
}
