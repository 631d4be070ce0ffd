package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/plumekit/plume/internal/domain"
)

// listRequest is the body of the storage list endpoint
type listRequest struct {
	Prefix string   `json:"prefix"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	SortBy listSort `json:"sortBy"`
}

type listSort struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

const listPageSize = 100

// list calls the storage list endpoint for a prefix inside the bucket
func (c *Client) list(ctx context.Context, prefix string, sort listSort) ([]storageObject, error) {
	body, err := json.Marshal(listRequest{
		Prefix: prefix,
		Limit:  listPageSize,
		Offset: 0,
		SortBy: sort,
	})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/storage/v1/object/list/%s", c.bucket)
	data, err := c.doRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}

	var objects []storageObject
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

// PublicURL returns the public URL for an object path in the bucket
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, path)
}

// ListFiles returns the objects under folder, newest-first, with public URLs.
// Folder placeholders are skipped.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]domain.MediaFile, error) {
	objects, err := c.list(ctx, folder, listSort{Column: "created_at", Order: "desc"})
	if err != nil {
		return nil, err
	}

	files := make([]domain.MediaFile, 0, len(objects))
	for _, o := range objects {
		if o.isFolder() {
			continue
		}
		path := o.Name
		if folder != "" {
			path = folder + "/" + o.Name
		}
		files = append(files, domain.MediaFile{
			Name: o.Name,
			URL:  c.PublicURL(path),
			Type: o.mimetype(),
		})
	}
	return files, nil
}

// ListFolders returns the top-level folder names in the bucket
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	objects, err := c.list(ctx, "", listSort{Column: "name", Order: "asc"})
	if err != nil {
		return nil, err
	}

	var folders []string
	for _, o := range objects {
		if o.isFolder() {
			folders = append(folders, o.Name)
		}
	}
	return folders, nil
}

// Upload stores an object and returns its public URL
func (c *Client) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}

	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("upload failed", "path", path, "status", resp.StatusCode)
		return "", fmt.Errorf("backend returned %d for upload of %s", resp.StatusCode, path)
	}
	return c.PublicURL(path), nil
}

// Remove deletes an object by path
func (c *Client) Remove(ctx context.Context, path string) error {
	reqPath := fmt.Sprintf("/storage/v1/object/%s/%s", c.bucket, path)
	_, err := c.doRequest(ctx, http.MethodDelete, reqPath, nil, nil)
	return err
}
