package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"vaultd/internal/models"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeBlobDetail(blob *models.Blob) error {
	lines := []string{
		fmt.Sprintf("id: %s", blob.ID),
		fmt.Sprintf("tenant_id: %s", blob.TenantID),
		fmt.Sprintf("storage_kind: %s", blob.StorageKind),
		fmt.Sprintf("object_key: %s", blob.ObjectKey),
		fmt.Sprintf("size_bytes: %d", blob.SizeBytes),
		fmt.Sprintf("content_hash: %s", blob.ContentHash),
		fmt.Sprintf("content_type: %s", blob.ContentType),
		fmt.Sprintf("tier: %s", blob.Tier),
		fmt.Sprintf("encrypted: %t", blob.Encrypted),
		fmt.Sprintf("created_at: %s", formatTime(blob.CreatedAt)),
	}

	if blob.Encrypted {
		lines = append(lines,
			fmt.Sprintf("enc_algorithm: %s", blob.EncAlgorithm),
			fmt.Sprintf("enc_key_id: %s", blob.EncKeyID),
		)
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
