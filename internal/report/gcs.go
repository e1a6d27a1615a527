package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// parseGCSDir splits gs://bucket/prefix into its parts.
func parseGCSDir(dir string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(dir, "gs://")
	if trimmed == dir || trimmed == "" {
		return "", "", fmt.Errorf("invalid GCS output directory %q", dir)
	}
	bucket, prefix, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS output directory %q", dir)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// saveToGCS writes the report object only if it does not already exist, so a
// rerun cannot clobber an earlier report.
func saveToGCS(ctx context.Context, dir, name, content string, logger *slog.Logger) (string, error) {
	bucket, prefix, err := parseGCSDir(dir)
	if err != nil {
		return "", err
	}
	objectName := name
	if prefix != "" {
		objectName = prefix + "/" + name
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create Storage client: %w", err)
	}
	defer client.Close()

	writer := client.Bucket(bucket).Object(objectName).
		If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			logger.Info("report object already exists, skipping", "object", objectName)
			return fmt.Sprintf("gs://%s/%s", bucket, objectName), nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			logger.Info("report object already exists, skipping", "object", objectName)
			return fmt.Sprintf("gs://%s/%s", bucket, objectName), nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	path := fmt.Sprintf("gs://%s/%s", bucket, objectName)
	logger.Info("report saved", "path", path)
	return path, nil
}
