package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"vaultd/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func plaintextBlob(id string) *models.Blob {
	return &models.Blob{
		ID:          id,
		TenantID:    "org-1",
		StorageKind: models.StorageKindLocal,
		ObjectKey:   "org-1/" + id + "/report.pdf",
		SizeBytes:   1024,
		ContentHash: "blake3:abcd",
		ContentType: "application/pdf",
		Tier:        models.TierL1,
	}
}

func TestCreateAndFindBlob(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	blob := plaintextBlob("bl-aaaa000001")
	if err := st.CreateBlob(ctx, blob); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.FindBlobByID(ctx, "bl-aaaa000001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected blob, got nil")
	}
	if got.TenantID != "org-1" {
		t.Fatalf("expected tenant org-1, got %q", got.TenantID)
	}
	if got.StorageKind != models.StorageKindLocal {
		t.Fatalf("expected storage kind local, got %q", got.StorageKind)
	}
	if got.Tier != models.TierL1 {
		t.Fatalf("expected tier L1, got %s", got.Tier)
	}
	if got.Encrypted {
		t.Fatal("expected plaintext blob")
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestCreateAndFindEncryptedBlob(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	iv := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	tag := bytes.Repeat([]byte{0xAB}, 16)
	blob := &models.Blob{
		ID:           "bl-enc0000001",
		TenantID:     "org-2",
		StorageKind:  models.StorageKindS3,
		ObjectKey:    "org-2/bl-enc0000001/secret.bin",
		SizeBytes:    4096,
		ContentHash:  "blake3:ef01",
		ContentType:  "application/octet-stream",
		Tier:         models.TierL3,
		Encrypted:    true,
		EncAlgorithm: "chacha20poly1305-stream",
		EncKeyID:     "primary",
		EncIV:        iv,
		EncTag:       tag,
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.CreateBlob(ctx, blob); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.FindBlobByID(ctx, "bl-enc0000001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected blob, got nil")
	}
	if !got.Encrypted {
		t.Fatal("expected encrypted blob")
	}
	if got.EncAlgorithm != "chacha20poly1305-stream" || got.EncKeyID != "primary" {
		t.Fatalf("envelope metadata mismatch: %q %q", got.EncAlgorithm, got.EncKeyID)
	}
	if !bytes.Equal(got.EncIV, iv) {
		t.Fatalf("iv mismatch: %x", got.EncIV)
	}
	if !bytes.Equal(got.EncTag, tag) {
		t.Fatalf("tag mismatch: %x", got.EncTag)
	}
}

func TestCreateBlobRejectsBadEncryptionState(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	// High tier without envelope metadata.
	blob := plaintextBlob("bl-bad0000001")
	blob.Tier = models.TierL2
	if err := st.CreateBlob(ctx, blob); err == nil {
		t.Fatal("expected error for unencrypted L2 blob")
	}

	// Low tier marked encrypted.
	blob = plaintextBlob("bl-bad0000002")
	blob.Encrypted = true
	if err := st.CreateBlob(ctx, blob); err == nil {
		t.Fatal("expected error for encrypted L1 blob")
	}
}

func TestCreateBlobRejectsDuplicateID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateBlob(ctx, plaintextBlob("bl-dup0000001")); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := plaintextBlob("bl-dup0000001")
	dup.ObjectKey = "org-1/other/key"
	if err := st.CreateBlob(ctx, dup); err == nil {
		t.Fatal("expected error on duplicate id")
	}
}

func TestCreateBlobLeavesInputUnchanged(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	blob := plaintextBlob("bl-immut00001")
	if !blob.CreatedAt.IsZero() {
		t.Fatal("test fixture should start with a zero created_at")
	}
	if err := st.CreateBlob(ctx, blob); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !blob.CreatedAt.IsZero() {
		t.Fatal("create must not write back into the caller's record")
	}

	got, err := st.FindBlobByID(ctx, "bl-immut00001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.CreatedAt.IsZero() {
		t.Fatal("stored record must carry a defaulted created_at")
	}
}

func TestFindBlobMissingReturnsNil(t *testing.T) {
	st := testStore(t)

	got, err := st.FindBlobByID(context.Background(), "bl-missing001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestDeleteBlob(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateBlob(ctx, plaintextBlob("bl-del0000001")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteBlob(ctx, "bl-del0000001"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := st.FindBlobByID(ctx, "bl-del0000001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatal("expected blob to be gone")
	}

	// Deleting again is success.
	if err := st.DeleteBlob(ctx, "bl-del0000001"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}
