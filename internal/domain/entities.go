package domain

import (
	"strings"
	"time"
)

// Post is a short blog update. The backend owns post identity; local code
// only caches snapshots and tracks per-post liked state.
type Post struct {
	ID        int64
	CreatedAt time.Time
	Content   string
	Thumbs    int      // like count, never negative
	Images    []string // public URLs of attached media
	Author    string   // resolved from the profile table
	Comments  []Comment
}

// Preview returns the first line of the post content, truncated for list views.
func (p Post) Preview(max int) string {
	text := p.Content
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max-1]) + "…"
	}
	return text
}

// Comment is a single discussion node. Comments form a forest per post:
// ParentID is nil for top-level comments and points at another comment id
// for replies.
type Comment struct {
	ID         int64
	CreatedAt  time.Time
	PostID     int64
	ParentID   *int64
	Content    string
	AuthorName string
	IP         string
}

// IsReply reports whether the comment is nested under another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != 0
}

// Profile is the single admin profile record.
type Profile struct {
	ID        int64
	Name      string
	Password  string // bcrypt hash, never plaintext at rest
	Avatar    string
	Birth     string
	CreatedAt time.Time
}

// MediaFile is one object in the storage bucket, resolved to a public URL.
type MediaFile struct {
	Name string
	URL  string
	Type string // MIME type, "unknown" when the bucket has no metadata
}

// Session is the local admin login record. It is a per-machine flag, not a
// real multi-user credential.
type Session struct {
	ProfileID int64
	Name      string
	AuthedAt  time.Time
}
