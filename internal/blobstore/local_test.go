package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLocal(t *testing.T) *Local {
	t.Helper()
	driver, err := NewLocal(filepath.Join(t.TempDir(), "objects"))
	if err != nil {
		t.Fatalf("new local driver: %v", err)
	}
	return driver
}

func TestLocalPutGetDelete(t *testing.T) {
	driver := testLocal(t)
	ctx := context.Background()
	payload := []byte("hello-blobstore")

	if err := driver.Put(ctx, "org-1/bl-xyz/test.bin", bytes.NewReader(payload), "application/octet-stream"); err != nil {
		t.Fatalf("put: %v", err)
	}

	body, err := driver.Get(ctx, "org-1/bl-xyz/test.bin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, err := io.ReadAll(body)
	if closeErr := body.Close(); closeErr != nil {
		t.Fatalf("close: %v", closeErr)
	}
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}

	if err := driver.Delete(ctx, "org-1/bl-xyz/test.bin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := driver.Get(ctx, "org-1/bl-xyz/test.bin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestLocalDeleteMissingIsSuccess(t *testing.T) {
	driver := testLocal(t)
	ctx := context.Background()

	if err := driver.Delete(ctx, "org-1/never-stored"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if err := driver.Delete(ctx, "org-1/never-stored"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}

func TestLocalGetMissing(t *testing.T) {
	driver := testLocal(t)

	if _, err := driver.Get(context.Background(), "org-1/nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalRejectsTraversalKeys(t *testing.T) {
	driver := testLocal(t)
	ctx := context.Background()

	keys := []string{
		"",
		"/etc/passwd",
		"..",
		"../outside",
		"org-1/../../outside",
	}
	for _, key := range keys {
		if err := driver.Put(ctx, key, strings.NewReader("x"), ""); err == nil {
			t.Fatalf("put %q: expected error", key)
		}
		if _, err := driver.Get(ctx, key); err == nil {
			t.Fatalf("get %q: expected error", key)
		}
		if err := driver.Delete(ctx, key); err == nil {
			t.Fatalf("delete %q: expected error", key)
		}
	}
}

func TestLocalPutOverwrites(t *testing.T) {
	driver := testLocal(t)
	ctx := context.Background()

	if err := driver.Put(ctx, "org-1/key", strings.NewReader("first"), ""); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := driver.Put(ctx, "org-1/key", strings.NewReader("second"), ""); err != nil {
		t.Fatalf("second put: %v", err)
	}

	body, err := driver.Get(ctx, "org-1/key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected %q, got %q", "second", got)
	}
}

func TestLocalLeavesNoTempFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "objects")
	driver, err := NewLocal(root)
	if err != nil {
		t.Fatalf("new local driver: %v", err)
	}

	if err := driver.Put(context.Background(), "org-1/a/b", strings.NewReader("payload"), ""); err != nil {
		t.Fatalf("put: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, ".tmp"))
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty tmp dir, found %d entries", len(entries))
	}
}
