package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeFileName converts a document stem into a safe filename component.
func sanitizeFileName(name string) string {
	lower := strings.ToLower(name)
	sanitized := nonAlphanumericRegex.ReplaceAllString(lower, "_")
	sanitized = strings.Trim(sanitized, "_")

	const maxLength = 100
	if len(sanitized) > maxLength {
		sanitized = sanitized[:maxLength]
		sanitized = strings.Trim(sanitized, "_")
	}
	return sanitized
}

func extensionFor(format string) string {
	if format == FormatHTML {
		return "html"
	}
	return "md"
}

// fileName builds revisao_<stem>_<timestamp>.<ext>.
func fileName(r *Report, now time.Time) string {
	base := sanitizeFileName(r.Stem)
	if base == "" {
		base = "documento"
	}
	return fmt.Sprintf("revisao_%s_%s.%s", base, now.Format("20060102_150405"), extensionFor(r.Format))
}

// Save writes the report under dir and returns the full path. A dir of the
// form gs://bucket/prefix routes the write to Cloud Storage.
func Save(ctx context.Context, r *Report, dir string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := fileName(r, time.Now())

	if strings.HasPrefix(dir, "gs://") {
		return saveToGCS(ctx, dir, name, r.Content, logger)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(r.Content), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	logger.Info("report saved", "path", path, "format", r.Format)
	return path, nil
}
