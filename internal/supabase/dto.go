package supabase

import (
	"time"

	"github.com/plumekit/plume/internal/domain"
)

// postRow mirrors the posts table
type postRow struct {
	ID        int64     `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	Content   *string   `json:"content,omitempty"`
	Thumbs    *int      `json:"thumbs,omitempty"`
	Images    []string  `json:"images,omitempty"`
}

// commentRow mirrors the discussions table
type commentRow struct {
	ID         int64     `json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	Content    string    `json:"content"`
	PostID     int64     `json:"post_id"`
	DisID      *int64    `json:"dis_id,omitempty"` // parent comment, null for top-level
	AuthorName string    `json:"author_name"`
	IP         string    `json:"ip,omitempty"`
}

// profileRow mirrors the profile table
type profileRow struct {
	ID        int64     `json:"id,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Pwd       *string   `json:"pwd,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	Birth     *string   `json:"birth,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// storageObject is one entry from the storage list endpoint. Folders come
// back without an id.
type storageObject struct {
	Name     string  `json:"name"`
	ID       *string `json:"id"`
	Metadata *struct {
		Mimetype string `json:"mimetype"`
	} `json:"metadata"`
}

func (o storageObject) isFolder() bool { return o.ID == nil }

func (o storageObject) mimetype() string {
	if o.Metadata == nil || o.Metadata.Mimetype == "" {
		return "unknown"
	}
	return o.Metadata.Mimetype
}

// === Mappers ===

func mapPost(r postRow) domain.Post {
	p := domain.Post{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Images:    r.Images,
	}
	if r.Content != nil {
		p.Content = *r.Content
	}
	if r.Thumbs != nil {
		p.Thumbs = *r.Thumbs
	}
	return p
}

func mapPosts(rows []postRow) []domain.Post {
	posts := make([]domain.Post, len(rows))
	for i, r := range rows {
		posts[i] = mapPost(r)
	}
	return posts
}

func mapComment(r commentRow) domain.Comment {
	c := domain.Comment{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		PostID:     r.PostID,
		Content:    r.Content,
		AuthorName: r.AuthorName,
		IP:         r.IP,
	}
	if r.DisID != nil && *r.DisID != 0 {
		c.ParentID = r.DisID
	}
	return c
}

func mapComments(rows []commentRow) []domain.Comment {
	comments := make([]domain.Comment, len(rows))
	for i, r := range rows {
		comments[i] = mapComment(r)
	}
	return comments
}

func mapProfile(r profileRow) domain.Profile {
	p := domain.Profile{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Pwd != nil {
		p.Password = *r.Pwd
	}
	if r.Avatar != nil {
		p.Avatar = *r.Avatar
	}
	if r.Birth != nil {
		p.Birth = *r.Birth
	}
	return p
}
