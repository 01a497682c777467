// Package source lists and downloads documents from a remote file store.
package source

import (
	"context"
	"errors"
	"io"
	"strings"
)

// GoogleAppsPrefix marks cloud-native Google document types, which have no binary
// content of their own and must be exported.
const GoogleAppsPrefix = "application/vnd.google-apps"

// ErrNotFound is returned when a file no longer exists or is not accessible.
var ErrNotFound = errors.New("remote file not found")

// RemoteFile is a file as reported by the remote store.
type RemoteFile struct {
	ID       string
	Name     string
	MimeType string
}

// Client is the remote file store contract used by ingestion.
type Client interface {
	// List returns every file visible to the service account, across all pages.
	List(ctx context.Context) ([]RemoteFile, error)
	// Get checks that the file is still accessible.
	Get(ctx context.Context, id string) error
	// ExportMedia converts a cloud-native document into mimeType.
	ExportMedia(ctx context.Context, id, mimeType string) (io.ReadCloser, error)
	// GetMedia returns the file's stored bytes.
	GetMedia(ctx context.Context, id string) (io.ReadCloser, error)
}

// Export describes how a cloud-native document type is exported.
type Export struct {
	MimeType  string
	Extension string
}

var exportFormats = map[string]Export{
	"application/vnd.google-apps.document": {
		MimeType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Extension: ".docx",
	},
}

// IsCloudNative reports whether mimeType is a cloud-native document type.
func IsCloudNative(mimeType string) bool {
	return strings.HasPrefix(mimeType, GoogleAppsPrefix)
}

// ExportFor returns the export mapping for a cloud-native mime type.
func ExportFor(mimeType string) (Export, bool) {
	e, ok := exportFormats[mimeType]
	return e, ok
}
