package domain

import (
	"context"
	"io"
)

// PostRepository provides access to posts on the hosted backend
type PostRepository interface {
	// GetPosts returns all posts ordered newest-first
	GetPosts(ctx context.Context) ([]Post, error)

	// GetPost returns a single post by id
	GetPost(ctx context.Context, id int64) (*Post, error)

	// CreatePost inserts a new post with zero likes
	CreatePost(ctx context.Context, content string, images []string) (*Post, error)

	// UpdatePost replaces the content and image list of an existing post
	UpdatePost(ctx context.Context, id int64, content string, images []string) (*Post, error)

	// DeletePost removes a post row
	DeletePost(ctx context.Context, id int64) error

	// LikePost increments the post's like count and returns the new count
	LikePost(ctx context.Context, id int64) (int, error)

	// UnlikePost decrements the post's like count (floored at zero) and
	// returns the new count
	UnlikePost(ctx context.Context, id int64) (int, error)
}

// CommentRepository provides access to the discussions table
type CommentRepository interface {
	// GetComments returns all comments for a post, oldest-first
	GetComments(ctx context.Context, postID int64) ([]Comment, error)

	// GetAllComments returns every comment across all posts, oldest-first
	GetAllComments(ctx context.Context) ([]Comment, error)

	// GetReplies returns the direct children of a comment
	GetReplies(ctx context.Context, commentID int64) ([]Comment, error)

	// CreateComment inserts a new comment or reply
	CreateComment(ctx context.Context, c Comment) (*Comment, error)

	// UpdateComment replaces a comment's content
	UpdateComment(ctx context.Context, id int64, content string) (*Comment, error)

	// DeleteComment removes a single comment row. The backend enforces no
	// cascading delete; callers must remove the subtree first.
	DeleteComment(ctx context.Context, id int64) error
}

// ProfileRepository provides access to the profile table
type ProfileRepository interface {
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	GetProfileByName(ctx context.Context, name string) (*Profile, error)
	UpsertProfile(ctx context.Context, p Profile) (*Profile, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// MediaRepository provides access to the storage bucket
type MediaRepository interface {
	// ListFiles returns bucket objects under folder ("" for the root),
	// newest-first, each resolved to its public URL
	ListFiles(ctx context.Context, folder string) ([]MediaFile, error)

	// ListFolders returns the top-level folder names in the bucket
	ListFolders(ctx context.Context) ([]string, error)

	// Upload stores an object at path and returns its public URL
	Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error)

	// Remove deletes an object by path
	Remove(ctx context.Context, path string) error
}
