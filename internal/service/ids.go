package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	blobIDPrefix = "bl-"
	blobIDLength = 10
	idAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"

	maxIDAttempts = 5
)

func randomID(prefix string, length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		buf[i] = idAlphabet[n.Int64()]
	}
	return prefix + string(buf), nil
}

// generateBlobID returns a fresh blob id not present in the registry,
// retrying on the unlikely collision.
func (s *BlobService) generateBlobID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := randomID(blobIDPrefix, blobIDLength)
		if err != nil {
			return "", err
		}
		existing, err := s.registry.FindBlobByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check id collision: %w", err)
		}
		if existing == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique blob id after %d attempts", maxIDAttempts)
}
