package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const listFields = "nextPageToken, files(id, name, mimeType)"

// DriveClient reads files through the Google Drive v3 API with a service account.
type DriveClient struct {
	srv *drive.Service
}

// NewDriveClient authenticates with the service-account JSON and builds the Drive
// service. Invalid credentials are reported here so startup can abort.
func NewDriveClient(ctx context.Context, credentialsJSON []byte) (*DriveClient, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load drive credentials: %w", err)
	}
	return newDriveClient(ctx, option.WithCredentials(creds))
}

func newDriveClient(ctx context.Context, opts ...option.ClientOption) (*DriveClient, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveClient{srv: srv}, nil
}

func (c *DriveClient) List(ctx context.Context) ([]RemoteFile, error) {
	var files []RemoteFile
	pageToken := ""
	for {
		call := c.srv.Files.List().Fields(listFields).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive files.list failed: %w", err)
		}
		for _, f := range res.Files {
			files = append(files, RemoteFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
		}
		if res.NextPageToken == "" {
			return files, nil
		}
		pageToken = res.NextPageToken
	}
}

func (c *DriveClient) Get(ctx context.Context, id string) error {
	if _, err := c.srv.Files.Get(id).Fields("id").Context(ctx).Do(); err != nil {
		return wrapDriveErr("files.get", id, err)
	}
	return nil
}

func (c *DriveClient) ExportMedia(ctx context.Context, id, mimeType string) (io.ReadCloser, error) {
	resp, err := c.srv.Files.Export(id, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, wrapDriveErr("files.export", id, err)
	}
	return resp.Body, nil
}

func (c *DriveClient) GetMedia(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, wrapDriveErr("files.get media", id, err)
	}
	return resp.Body, nil
}

func wrapDriveErr(op, id string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("drive %s %s: %w: %v", op, id, ErrNotFound, err)
	}
	return fmt.Errorf("drive %s %s failed: %w", op, id, err)
}

var _ Client = (*DriveClient)(nil)
