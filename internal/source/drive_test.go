package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// newFakeDrive serves two pages of files.list plus media and export downloads.
func newFakeDrive(t *testing.T) (*DriveClient, *[]string) {
	t.Helper()
	var exports []string
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageToken") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"files": []driveFile{
					{ID: "1", Name: "report.pdf", MimeType: "application/pdf"},
					{ID: "2", Name: "Plan", MimeType: "application/vnd.google-apps.document"},
				},
				"nextPageToken": "page-2",
			})
		case "page-2":
			json.NewEncoder(w).Encode(map[string]any{
				"files": []driveFile{{ID: "3", Name: "notes.txt", MimeType: "text/plain"}},
			})
		default:
			http.Error(w, "bad page token", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/drive/v3/files/3", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") == "media" {
			w.Write([]byte("note body"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(driveFile{ID: "3"})
	})
	mux.HandleFunc("/drive/v3/files/2/export", func(w http.ResponseWriter, r *http.Request) {
		exports = append(exports, r.URL.Query().Get("mimeType"))
		w.Write([]byte("docx bytes"))
	})
	mux.HandleFunc("/drive/v3/files/gone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"File not found: gone."}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := newDriveClient(context.Background(),
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client, &exports
}

func TestDriveListFollowsPages(t *testing.T) {
	client, _ := newFakeDrive(t)

	files, err := client.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []RemoteFile{
		{ID: "1", Name: "report.pdf", MimeType: "application/pdf"},
		{ID: "2", Name: "Plan", MimeType: "application/vnd.google-apps.document"},
		{ID: "3", Name: "notes.txt", MimeType: "text/plain"},
	}, files)
}

func TestDriveGetAndDownload(t *testing.T) {
	ctx := context.Background()
	client, exports := newFakeDrive(t)

	require.NoError(t, client.Get(ctx, "3"))
	err := client.Get(ctx, "gone")
	require.True(t, errors.Is(err, ErrNotFound))

	body, err := client.GetMedia(ctx, "3")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "note body", string(data))

	export, ok := ExportFor("application/vnd.google-apps.document")
	require.True(t, ok)
	body, err = client.ExportMedia(ctx, "2", export.MimeType)
	require.NoError(t, err)
	data, err = io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "docx bytes", string(data))
	require.Equal(t, []string{export.MimeType}, *exports)

	_, err = client.GetMedia(ctx, "gone")
	require.True(t, errors.Is(err, ErrNotFound))
}
