package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/plumekit/plume/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Plume/1.0"
)

// Client talks to a Supabase project over its REST surface (PostgREST for
// tables, the storage API for the media bucket). It implements
// domain.PostRepository, domain.CommentRepository, domain.ProfileRepository
// and domain.MediaRepository.
type Client struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Supabase API client
func NewClient(baseURL, apiKey, bucket string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.HTTPClient.Timeout = defaultTimeout
	r.Logger = nil
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		bucket:     bucket,
		httpClient: r.StandardClient(),
		logger:     logger,
	}
}

// doRequest performs an authenticated request and returns the response body
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		// Ask PostgREST to echo the affected rows back
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("backend request failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("backend returned %d for %s %s", resp.StatusCode, method, path)
	}
	return data, nil
}

func (c *Client) getRows(ctx context.Context, table string, query url.Values, dest interface{}) error {
	data, err := c.doRequest(ctx, http.MethodGet, "/rest/v1/"+table, query, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func eq(id int64) string {
	return "eq." + strconv.FormatInt(id, 10)
}

// === Posts ===

func (c *Client) GetPosts(ctx context.Context) ([]domain.Post, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")

	var rows []postRow
	if err := c.getRows(ctx, "posts", query, &rows); err != nil {
		return nil, err
	}
	return mapPosts(rows), nil
}

func (c *Client) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", eq(id))

	var rows []postRow
	if err := c.getRows(ctx, "posts", query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrPostNotFound
	}
	post := mapPost(rows[0])
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, content string, images []string) (*domain.Post, error) {
	if images == nil {
		images = []string{}
	}
	zero := 0
	body, err := json.Marshal(postRow{Content: &content, Images: images, Thumbs: &zero})
	if err != nil {
		return nil, err
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/rest/v1/posts", nil, body)
	if err != nil {
		return nil, err
	}
	var rows []postRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no rows")
	}
	post := mapPost(rows[0])
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id int64, content string, images []string) (*domain.Post, error) {
	body, err := json.Marshal(postRow{Content: &content, Images: images})
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("id", eq(id))
	data, err := c.doRequest(ctx, http.MethodPatch, "/rest/v1/posts", query, body)
	if err != nil {
		return nil, err
	}
	var rows []postRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrPostNotFound
	}
	post := mapPost(rows[0])
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	query := url.Values{}
	query.Set("id", eq(id))
	_, err := c.doRequest(ctx, http.MethodDelete, "/rest/v1/posts", query, nil)
	return err
}

// LikePost bumps the like count by one. The backend keeps no per-user like
// state, so this is a plain read-modify-write on the counter.
func (c *Client) LikePost(ctx context.Context, id int64) (int, error) {
	return c.adjustThumbs(ctx, id, 1)
}

// UnlikePost lowers the like count by one, floored at zero.
func (c *Client) UnlikePost(ctx context.Context, id int64) (int, error) {
	return c.adjustThumbs(ctx, id, -1)
}

func (c *Client) adjustThumbs(ctx context.Context, id int64, delta int) (int, error) {
	post, err := c.GetPost(ctx, id)
	if err != nil {
		return 0, err
	}

	thumbs := post.Thumbs + delta
	if thumbs < 0 {
		thumbs = 0
	}
	body, err := json.Marshal(postRow{Thumbs: &thumbs})
	if err != nil {
		return 0, err
	}

	query := url.Values{}
	query.Set("id", eq(id))
	data, err := c.doRequest(ctx, http.MethodPatch, "/rest/v1/posts", query, body)
	if err != nil {
		return 0, err
	}
	var rows []postRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].Thumbs == nil {
		return thumbs, nil
	}
	return *rows[0].Thumbs, nil
}

// === Comments ===

func (c *Client) GetComments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("post_id", eq(postID))
	query.Set("order", "created_at.asc")

	var rows []commentRow
	if err := c.getRows(ctx, "discussions", query, &rows); err != nil {
		return nil, err
	}
	return mapComments(rows), nil
}

func (c *Client) GetAllComments(ctx context.Context) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.asc")

	var rows []commentRow
	if err := c.getRows(ctx, "discussions", query, &rows); err != nil {
		return nil, err
	}
	return mapComments(rows), nil
}

func (c *Client) GetReplies(ctx context.Context, commentID int64) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("dis_id", eq(commentID))

	var rows []commentRow
	if err := c.getRows(ctx, "discussions", query, &rows); err != nil {
		return nil, err
	}
	return mapComments(rows), nil
}

func (c *Client) CreateComment(ctx context.Context, comment domain.Comment) (*domain.Comment, error) {
	row := commentRow{
		Content:    comment.Content,
		PostID:     comment.PostID,
		DisID:      comment.ParentID,
		AuthorName: comment.AuthorName,
		IP:         comment.IP,
	}
	if row.IP == "" {
		row.IP = "unknown"
	}
	body, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/rest/v1/discussions", nil, body)
	if err != nil {
		return nil, err
	}
	var rows []commentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no rows")
	}
	created := mapComment(rows[0])
	return &created, nil
}

func (c *Client) UpdateComment(ctx context.Context, id int64, content string) (*domain.Comment, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("id", eq(id))
	data, err := c.doRequest(ctx, http.MethodPatch, "/rest/v1/discussions", query, body)
	if err != nil {
		return nil, err
	}
	var rows []commentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrCommentNotFound
	}
	updated := mapComment(rows[0])
	return &updated, nil
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	query := url.Values{}
	query.Set("id", eq(id))
	_, err := c.doRequest(ctx, http.MethodDelete, "/rest/v1/discussions", query, nil)
	return err
}

// === Profiles ===

func (c *Client) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", eq(id))

	var rows []profileRow
	if err := c.getRows(ctx, "profile", query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	profile := mapProfile(rows[0])
	return &profile, nil
}

func (c *Client) GetProfileByName(ctx context.Context, name string) (*domain.Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("name", "eq."+name)

	var rows []profileRow
	if err := c.getRows(ctx, "profile", query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	profile := mapProfile(rows[0])
	return &profile, nil
}

func (c *Client) UpsertProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	row := profileRow{ID: p.ID}
	if p.Name != "" {
		row.Name = &p.Name
	}
	if p.Password != "" {
		row.Pwd = &p.Password
	}
	if p.Avatar != "" {
		row.Avatar = &p.Avatar
	}
	if p.Birth != "" {
		row.Birth = &p.Birth
	}
	body, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("on_conflict", "id")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/rest/v1/profile?%s", c.baseURL, query.Encode()), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend returned %d for profile upsert", resp.StatusCode)
	}
	var rows []profileRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert returned no rows")
	}
	profile := mapProfile(rows[0])
	return &profile, nil
}

func (c *Client) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	body, err := json.Marshal(map[string]string{"pwd": passwordHash})
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("id", eq(id))
	_, err = c.doRequest(ctx, http.MethodPatch, "/rest/v1/profile", query, body)
	return err
}
