package service

import (
	"context"
	"log/slog"
)

// Download channels recorded in audit events.
const (
	ChannelStream    = "stream"
	ChannelSignedURL = "signed_url"
)

// UploadEvent describes one completed blob upload.
type UploadEvent struct {
	BlobID    string
	TenantID  string
	Filename  string
	SizeBytes int64
}

// DownloadEvent describes one completed blob read.
type DownloadEvent struct {
	BlobID    string
	TenantID  string
	Filename  string
	SizeBytes int64
	Channel   string
}

// Auditor receives notifications after successful operations. Failures are
// logged and never fail the operation that triggered them.
type Auditor interface {
	BlobUploaded(ctx context.Context, event UploadEvent) error
	BlobDownloaded(ctx context.Context, event DownloadEvent) error
}

// LogAuditor writes audit events to the structured log.
type LogAuditor struct {
	logger *slog.Logger
}

func NewLogAuditor(logger *slog.Logger) *LogAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAuditor{logger: logger}
}

func (a *LogAuditor) BlobUploaded(ctx context.Context, event UploadEvent) error {
	a.logger.InfoContext(ctx, "blob uploaded",
		"blob_id", event.BlobID,
		"tenant_id", event.TenantID,
		"filename", event.Filename,
		"size_bytes", event.SizeBytes,
	)
	return nil
}

func (a *LogAuditor) BlobDownloaded(ctx context.Context, event DownloadEvent) error {
	a.logger.InfoContext(ctx, "blob downloaded",
		"blob_id", event.BlobID,
		"tenant_id", event.TenantID,
		"filename", event.Filename,
		"size_bytes", event.SizeBytes,
		"channel", event.Channel,
	)
	return nil
}

func (s *BlobService) notifyUploaded(ctx context.Context, event UploadEvent) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.BlobUploaded(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit upload notification failed", "blob_id", event.BlobID, "error", err)
	}
}

func (s *BlobService) notifyDownloaded(ctx context.Context, event DownloadEvent) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.BlobDownloaded(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit download notification failed", "blob_id", event.BlobID, "error", err)
	}
}
