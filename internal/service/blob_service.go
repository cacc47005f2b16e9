package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"vaultd/internal/blobstore"
	"vaultd/internal/envelope"
	"vaultd/internal/models"
)

const (
	maxTenantIDLength = 64
	fallbackFilename  = "upload.bin"
)

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// BlobRegistry is the metadata collaborator of the blob service. The
// SQLite store satisfies it; tests substitute fakes.
type BlobRegistry interface {
	CreateBlob(ctx context.Context, blob *models.Blob) error
	// FindBlobByID returns nil, nil when no blob exists under id.
	FindBlobByID(ctx context.Context, id string) (*models.Blob, error)
	// DeleteBlob treats a missing record as success.
	DeleteBlob(ctx context.Context, id string) error
}

// BlobServiceConfig carries the tunable limits of the blob service.
type BlobServiceConfig struct {
	// MaxUploadBytes rejects larger payloads before any backend I/O.
	MaxUploadBytes int64
	// AllowedContentTypes is an allow-list of normalized media types.
	// Empty means every type is accepted.
	AllowedContentTypes []string
	// Signed link lifetime bounds. Requested TTLs are clamped into
	// [MinLinkTTL, MaxLinkTTL]; zero requests get DefaultLinkTTL.
	DefaultLinkTTL time.Duration
	MinLinkTTL     time.Duration
	MaxLinkTTL     time.Duration
}

// BlobService orchestrates blob uploads, downloads and deletes across the
// storage driver, the crypto envelope and the metadata registry.
type BlobService struct {
	registry     BlobRegistry
	driver       blobstore.Driver
	envelope     *envelope.Envelope
	cfg          BlobServiceConfig
	auditor      Auditor
	logger       *slog.Logger
	allowedTypes map[string]struct{}
}

func NewBlobService(registry BlobRegistry, driver blobstore.Driver, env *envelope.Envelope, cfg BlobServiceConfig, auditor Auditor, logger *slog.Logger) (*BlobService, error) {
	if registry == nil {
		return nil, fmt.Errorf("blob registry is required")
	}
	if driver == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultLinkTTL <= 0 {
		cfg.DefaultLinkTTL = 15 * time.Minute
	}
	if cfg.MinLinkTTL <= 0 {
		cfg.MinLinkTTL = time.Minute
	}
	if cfg.MaxLinkTTL <= 0 {
		cfg.MaxLinkTTL = time.Hour
	}
	if cfg.MinLinkTTL > cfg.MaxLinkTTL {
		return nil, fmt.Errorf("min link ttl %s exceeds max %s", cfg.MinLinkTTL, cfg.MaxLinkTTL)
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedContentTypes) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedContentTypes))
		for _, ct := range cfg.AllowedContentTypes {
			normalized, err := normalizeContentType(ct)
			if err != nil {
				return nil, fmt.Errorf("allowed content type %q: %w", ct, err)
			}
			allowed[normalized] = struct{}{}
		}
	}

	return &BlobService{
		registry:     registry,
		driver:       driver,
		envelope:     env,
		cfg:          cfg,
		auditor:      auditor,
		logger:       logger,
		allowedTypes: allowed,
	}, nil
}

// CreateBlobRequest is one upload.
type CreateBlobRequest struct {
	TenantID    string
	Filename    string
	ContentType string
	Tier        models.ConfidentialityTier
	Payload     []byte
}

// CreateBlob validates, optionally encrypts and stores one payload, then
// records its metadata. The backend write happens before the registry
// write so metadata never points at absent bytes; if the registry write
// fails the orphaned object is left for offline reconciliation.
func (s *BlobService) CreateBlob(ctx context.Context, req CreateBlobRequest) (*models.Blob, error) {
	if err := validateTenantID(req.TenantID); err != nil {
		return nil, validationError(err, ErrCodeInvalidTenant)
	}
	if !req.Tier.Valid() {
		return nil, validationError(fmt.Errorf("invalid confidentiality tier: %d", req.Tier), ErrCodeInvalidArgument)
	}
	if req.Payload == nil {
		return nil, validationError(fmt.Errorf("payload is required"), ErrCodeMissingRequired)
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(req.Payload)) > s.cfg.MaxUploadBytes {
		return nil, payloadTooLarge(fmt.Errorf("payload is %d bytes, limit is %d", len(req.Payload), s.cfg.MaxUploadBytes))
	}

	contentType, err := normalizeContentType(req.ContentType)
	if err != nil {
		return nil, validationError(fmt.Errorf("content type %q: %w", req.ContentType, err), ErrCodeInvalidArgument)
	}
	if s.allowedTypes != nil {
		if _, ok := s.allowedTypes[contentType]; !ok {
			return nil, contentTypeNotAllowed(fmt.Errorf("content type %s is not allowed", contentType))
		}
	}

	id, err := s.generateBlobID(ctx)
	if err != nil {
		return nil, internalError(err)
	}

	blob := &models.Blob{
		ID:          id,
		TenantID:    req.TenantID,
		StorageKind: models.StorageKind(s.driver.Kind()),
		ObjectKey:   objectKey(req.TenantID, id, req.Filename),
		SizeBytes:   int64(len(req.Payload)),
		ContentHash: contentHash(req.Payload),
		ContentType: contentType,
		Tier:        req.Tier,
		CreatedAt:   time.Now().UTC(),
	}

	stored := req.Payload
	storedType := contentType
	if envelope.ShouldEncrypt(req.Tier) {
		if s.envelope == nil {
			return nil, cryptoError(envelope.ErrKeyNotConfigured)
		}
		sealed, err := s.envelope.Encrypt(req.Payload)
		if err != nil {
			return nil, cryptoError(err)
		}
		stored = sealed.Ciphertext
		storedType = "application/octet-stream"
		blob.Encrypted = true
		blob.EncAlgorithm = sealed.Algorithm
		blob.EncKeyID = sealed.KeyID
		blob.EncIV = sealed.IV
		blob.EncTag = sealed.Tag
	}

	if err := s.driver.Put(ctx, blob.ObjectKey, bytes.NewReader(stored), storedType); err != nil {
		return nil, backendError(fmt.Errorf("store object %s: %w", blob.ObjectKey, err))
	}

	if err := s.registry.CreateBlob(ctx, blob); err != nil {
		s.logger.ErrorContext(ctx, "metadata write failed after backend write, object orphaned",
			"blob_id", blob.ID, "object_key", blob.ObjectKey, "error", err)
		return nil, registryError(fmt.Errorf("record blob %s: %w", blob.ID, err))
	}

	s.notifyUploaded(ctx, UploadEvent{
		BlobID:    blob.ID,
		TenantID:  blob.TenantID,
		Filename:  req.Filename,
		SizeBytes: blob.SizeBytes,
	})

	return blob, nil
}

// BlobContent is the result of a download. Exactly one of Stream and
// SignedURL is set: plaintext blobs on a signing-capable driver hand out a
// direct link, everything else streams through the service. Callers must
// close Stream when set.
type BlobContent struct {
	Blob      *models.Blob
	Stream    io.ReadCloser
	SignedURL string
	ExpiresAt time.Time
}

// GetBlobStream fetches one blob's content. requestingTenantID, when
// non-empty, must match the blob's tenant; authorization for cross-tenant
// reads happens upstream via AccessPolicy, which then passes an empty
// tenant here. linkTTL applies only when a signed link is minted and is
// clamped into the configured bounds.
func (s *BlobService) GetBlobStream(ctx context.Context, id, requestingTenantID string, linkTTL time.Duration) (*BlobContent, error) {
	blob, err := s.loadBlob(ctx, id, requestingTenantID)
	if err != nil {
		return nil, err
	}

	// Encrypted blobs always stream: decryption needs the envelope key,
	// so a backend-native link would hand out raw ciphertext.
	if !blob.Encrypted {
		if signer, ok := s.driver.(blobstore.URLSigner); ok {
			signed, err := signer.SignGetURL(ctx, blob.ObjectKey, s.clampTTL(linkTTL))
			if err != nil {
				return nil, signerUnavailableError(fmt.Errorf("sign url for %s: %w", blob.ObjectKey, err))
			}
			s.notifyDownloaded(ctx, DownloadEvent{
				BlobID:    blob.ID,
				TenantID:  blob.TenantID,
				Filename:  filenameFromKey(blob.ObjectKey),
				SizeBytes: blob.SizeBytes,
				Channel:   ChannelSignedURL,
			})
			return &BlobContent{Blob: blob, SignedURL: signed.URL, ExpiresAt: signed.ExpiresAt}, nil
		}
	}

	body, err := s.driver.Get(ctx, blob.ObjectKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, notFoundError(fmt.Errorf("object for blob %s is missing from the backend", blob.ID))
		}
		return nil, backendError(fmt.Errorf("fetch object %s: %w", blob.ObjectKey, err))
	}

	stream := io.ReadCloser(body)
	if blob.Encrypted {
		plain, err := s.decryptStream(body, blob)
		if err != nil {
			_ = body.Close()
			return nil, err
		}
		stream = readCloser{Reader: plain, closer: body}
	}

	s.notifyDownloaded(ctx, DownloadEvent{
		BlobID:    blob.ID,
		TenantID:  blob.TenantID,
		Filename:  filenameFromKey(blob.ObjectKey),
		SizeBytes: blob.SizeBytes,
		Channel:   ChannelStream,
	})

	return &BlobContent{Blob: blob, Stream: stream}, nil
}

// DeleteBlob removes a blob's bytes, then its metadata. Deleting an
// unknown id is success. The backend delete runs first so a failure never
// leaves metadata pointing at absent bytes.
func (s *BlobService) DeleteBlob(ctx context.Context, id, requestingTenantID string) error {
	blob, err := s.loadBlob(ctx, id, requestingTenantID)
	if err != nil {
		if StatusFromError(err) == 404 {
			return nil
		}
		return err
	}

	if err := s.driver.Delete(ctx, blob.ObjectKey); err != nil {
		return backendError(fmt.Errorf("delete object %s: %w", blob.ObjectKey, err))
	}
	if err := s.registry.DeleteBlob(ctx, blob.ID); err != nil {
		return registryError(fmt.Errorf("delete blob record %s: %w", blob.ID, err))
	}
	return nil
}

// StatBlob returns a blob's metadata without touching its bytes.
func (s *BlobService) StatBlob(ctx context.Context, id, requestingTenantID string) (*models.Blob, error) {
	return s.loadBlob(ctx, id, requestingTenantID)
}

func (s *BlobService) loadBlob(ctx context.Context, id, requestingTenantID string) (*models.Blob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError(fmt.Errorf("blob id is required"), ErrCodeInvalidID)
	}
	blob, err := s.registry.FindBlobByID(ctx, id)
	if err != nil {
		return nil, registryError(fmt.Errorf("look up blob %s: %w", id, err))
	}
	if blob == nil {
		return nil, notFoundError(fmt.Errorf("blob %s not found", id))
	}
	// Defense in depth behind AccessPolicy: a caller pinned to a tenant
	// never reaches another tenant's blobs.
	if requestingTenantID != "" && blob.TenantID != requestingTenantID {
		return nil, forbiddenError(fmt.Errorf("blob %s does not belong to tenant %s", id, requestingTenantID), ErrCodeCrossTenantDenied)
	}
	if string(blob.StorageKind) != s.driver.Kind() {
		return nil, driverMismatchError(fmt.Errorf("blob %s was stored via %q but the configured driver is %q", id, blob.StorageKind, s.driver.Kind()))
	}
	return blob, nil
}

func (s *BlobService) decryptStream(ciphertext io.Reader, blob *models.Blob) (io.Reader, error) {
	if s.envelope == nil {
		return nil, cryptoError(envelope.ErrKeyNotConfigured)
	}
	if blob.EncAlgorithm != envelope.Algorithm {
		return nil, driverMismatchError(fmt.Errorf("blob %s uses algorithm %q, this build supports %q", blob.ID, blob.EncAlgorithm, envelope.Algorithm))
	}
	if blob.EncKeyID != s.envelope.KeyID() {
		return nil, driverMismatchError(fmt.Errorf("blob %s was sealed under key %q, configured key is %q", blob.ID, blob.EncKeyID, s.envelope.KeyID()))
	}
	plain, err := s.envelope.DecryptStream(ciphertext, blob.EncIV, blob.EncTag)
	if err != nil {
		return nil, cryptoError(fmt.Errorf("open blob %s: %w", blob.ID, err))
	}
	return plain, nil
}

func (s *BlobService) clampTTL(requested time.Duration) time.Duration {
	if requested <= 0 {
		return s.cfg.DefaultLinkTTL
	}
	if requested < s.cfg.MinLinkTTL {
		return s.cfg.MinLinkTTL
	}
	if requested > s.cfg.MaxLinkTTL {
		return s.cfg.MaxLinkTTL
	}
	return requested
}

func validateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if len(tenantID) > maxTenantIDLength {
		return fmt.Errorf("tenant id exceeds %d characters", maxTenantIDLength)
	}
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("tenant id %q contains invalid characters", tenantID)
	}
	return nil
}

func normalizeContentType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "application/octet-stream", nil
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", err
	}
	return mediaType, nil
}

var filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func sanitizeFilename(name string) string {
	name = filenameSanitizer.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" || name == "." || name == ".." {
		return fallbackFilename
	}
	return name
}

// objectKey lays objects out as tenant/blob-id/filename so keys never
// collide across tenants or uploads.
func objectKey(tenantID, blobID, filename string) string {
	return tenantID + "/" + blobID + "/" + sanitizeFilename(filename)
}

func filenameFromKey(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func contentHash(payload []byte) string {
	sum := blake3.Sum256(payload)
	return "blake3:" + hex.EncodeToString(sum[:])
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (rc readCloser) Close() error {
	return rc.closer.Close()
}
