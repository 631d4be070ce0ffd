package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/plumekit/plume/internal/cache"
	"github.com/plumekit/plume/internal/domain"
)

// Service orchestrates the post feed: cache-aware reads, post and comment
// writes, and the optimistic like toggle.
type Service struct {
	posts    domain.PostRepository
	comments domain.CommentRepository
	profiles domain.ProfileRepository
	media    domain.MediaRepository
	store    domain.Store
	logger   *slog.Logger

	authorID int64 // profile row used as the author of every post

	mu      sync.Mutex
	pending map[int64]struct{} // posts with an in-flight like toggle
}

// NewService creates a new feed service.
func NewService(
	posts domain.PostRepository,
	comments domain.CommentRepository,
	profiles domain.ProfileRepository,
	media domain.MediaRepository,
	store domain.Store,
	authorID int64,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		posts:    posts,
		comments: comments,
		profiles: profiles,
		media:    media,
		store:    store,
		logger:   logger,
		authorID: authorID,
		pending:  make(map[int64]struct{}),
	}
}

// GetPosts returns the full feed, newest-first, with the author name and
// comments attached to each post. A fresh cache entry short-circuits the
// backend entirely; otherwise the assembled feed is cached for the posts
// namespace TTL.
func (s *Service) GetPosts(ctx context.Context) ([]domain.Post, error) {
	if posts, ok := s.store.GetPosts(); ok {
		s.logger.Debug("feed served from cache", "count", len(posts))
		return posts, nil
	}

	posts, err := s.posts.GetPosts(ctx)
	if err != nil {
		s.logger.Error("failed to fetch posts", "error", err)
		return nil, err
	}

	author := s.authorName(ctx)

	comments, err := s.comments.GetAllComments(ctx)
	if err != nil {
		s.logger.Error("failed to fetch comments", "error", err)
		return nil, err
	}
	byPost := make(map[int64][]domain.Comment)
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
	}

	for i := range posts {
		posts[i].Author = author
		posts[i].Comments = byPost[posts[i].ID]
	}

	if err := s.store.SavePosts(posts); err != nil {
		s.logger.Error("failed to cache posts", "error", err)
	}
	s.logger.Debug("feed fetched from backend", "count", len(posts))
	return posts, nil
}

// GetPost returns one post with author and comments attached. Single posts
// are not cached; the feed entry is the cache unit.
func (s *Service) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Author = s.authorName(ctx)

	comments, err := s.comments.GetComments(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Comments = comments
	return post, nil
}

func (s *Service) authorName(ctx context.Context) string {
	profile, err := s.profiles.GetProfile(ctx, s.authorID)
	if err != nil || profile.Name == "" {
		s.logger.Warn("failed to resolve author profile", "profileID", s.authorID, "error", err)
		return "unknown"
	}
	return profile.Name
}

// === Post writes ===

func (s *Service) CreatePost(ctx context.Context, content string, images []string) (*domain.Post, error) {
	post, err := s.posts.CreatePost(ctx, content, images)
	if err != nil {
		s.logger.Error("failed to create post", "error", err)
		return nil, err
	}
	post.Author = s.authorName(ctx)

	cache.AfterMutation(s.store, s.logger, domain.OperationCreate, domain.EntityPost)
	s.logger.Info("created post", "postID", post.ID)
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, id int64, content string, images []string) (*domain.Post, error) {
	post, err := s.posts.UpdatePost(ctx, id, content, images)
	if err != nil {
		s.logger.Error("failed to update post", "error", err, "postID", id)
		return nil, err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationUpdate, domain.EntityPost)
	s.logger.Info("updated post", "postID", id)
	return post, nil
}

// DeletePost removes a post and then its attached media objects. A failed
// attachment delete is logged and skipped; the post row is already gone.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		s.logger.Error("failed to delete post", "error", err, "postID", id)
		return err
	}

	for _, imageURL := range post.Images {
		path, ok := objectPath(imageURL)
		if !ok {
			s.logger.Warn("could not derive object path from URL", "url", imageURL)
			continue
		}
		if err := s.media.Remove(ctx, path); err != nil {
			s.logger.Warn("failed to delete attachment", "error", err, "path", path)
		}
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationDelete, domain.EntityPost)
	s.logger.Info("deleted post", "postID", id, "attachments", len(post.Images))
	return nil
}

// objectPath extracts the bucket-relative object path from a public URL of
// the form .../storage/v1/object/public/{bucket}/{folder}/{name}.
func objectPath(publicURL string) (string, bool) {
	const marker = "/object/public/"
	i := strings.Index(publicURL, marker)
	if i < 0 {
		return "", false
	}
	rest := publicURL[i+len(marker):]
	// Drop the bucket segment
	j := strings.IndexByte(rest, '/')
	if j < 0 || j == len(rest)-1 {
		return "", false
	}
	return rest[j+1:], true
}

// === Like toggle ===

// ToggleLike flips the local liked state for a post, fires the matching
// backend mutation, and settles: on success the cached like count moves by
// one, on failure the ledger is restored to its pre-toggle value. A second
// toggle for the same post while one is in flight is rejected with
// domain.ErrLikePending. At every settle the ledger, the cached count and
// the returned state agree; no state ever reflects a mutation the backend
// did not confirm.
func (s *Service) ToggleLike(ctx context.Context, postID int64) (bool, error) {
	s.mu.Lock()
	if _, busy := s.pending[postID]; busy {
		s.mu.Unlock()
		return s.store.IsLiked(postID), fmt.Errorf("%w %d", domain.ErrLikePending, postID)
	}
	s.pending[postID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
	}()

	previous := s.store.IsLiked(postID)
	next := !previous

	// Optimistic flip before the backend confirms
	s.store.SetLiked(postID, next)

	var err error
	if next {
		_, err = s.posts.LikePost(ctx, postID)
	} else {
		_, err = s.posts.UnlikePost(ctx, postID)
	}
	if err != nil {
		// Roll everything back to the pre-toggle snapshot
		s.store.SetLiked(postID, previous)
		s.logger.Warn("like toggle failed, rolled back", "postID", postID, "error", err)
		return previous, err
	}

	if next {
		s.store.AdjustCachedThumbs(postID, 1)
	} else {
		s.store.AdjustCachedThumbs(postID, -1)
	}
	s.logger.Debug("like toggle settled", "postID", postID, "liked", next)
	return next, nil
}

// IsLiked reports the local liked state for a post.
func (s *Service) IsLiked(postID int64) bool {
	return s.store.IsLiked(postID)
}

// === Comments ===

func (s *Service) CreateComment(ctx context.Context, postID int64, content, authorName, ip string, parentID *int64) (*domain.Comment, error) {
	comment, err := s.comments.CreateComment(ctx, domain.Comment{
		PostID:     postID,
		Content:    content,
		AuthorName: authorName,
		IP:         ip,
		ParentID:   parentID,
	})
	if err != nil {
		s.logger.Error("failed to create comment", "error", err, "postID", postID)
		return nil, err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationCreate, domain.EntityComment)
	s.logger.Info("created comment", "commentID", comment.ID, "postID", postID)
	return comment, nil
}

func (s *Service) UpdateComment(ctx context.Context, id int64, content string) (*domain.Comment, error) {
	comment, err := s.comments.UpdateComment(ctx, id, content)
	if err != nil {
		s.logger.Error("failed to update comment", "error", err, "commentID", id)
		return nil, err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationUpdate, domain.EntityComment)
	return comment, nil
}

// DeleteComment removes a comment and its whole reply subtree, children
// first, because the backend enforces no cascading delete. If any child
// delete fails the error propagates and the parent is left in place; a
// partially deleted subtree is possible and accepted.
func (s *Service) DeleteComment(ctx context.Context, id int64) error {
	if err := s.deleteCommentTree(ctx, id); err != nil {
		s.logger.Error("failed to delete comment tree", "error", err, "commentID", id)
		return err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationDelete, domain.EntityComment)
	s.logger.Info("deleted comment", "commentID", id)
	return nil
}

func (s *Service) deleteCommentTree(ctx context.Context, id int64) error {
	replies, err := s.comments.GetReplies(ctx, id)
	if err != nil {
		return err
	}
	for _, reply := range replies {
		if err := s.deleteCommentTree(ctx, reply.ID); err != nil {
			return err
		}
	}
	return s.comments.DeleteComment(ctx, id)
}

// GetComments returns the comments for one post, oldest-first, with a
// cache-aside read.
func (s *Service) GetComments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	if comments, ok := s.store.GetComments(postID); ok {
		return comments, nil
	}

	comments, err := s.comments.GetComments(ctx, postID)
	if err != nil {
		s.logger.Error("failed to fetch comments", "error", err, "postID", postID)
		return nil, err
	}
	if err := s.store.SaveComments(postID, comments); err != nil {
		s.logger.Error("failed to cache comments", "error", err, "postID", postID)
	}
	return comments, nil
}
