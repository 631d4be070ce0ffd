package domain

import "time"

// Namespace is a named group of cached entities sharing one TTL policy.
// Namespaces are independent; invalidating one never touches another.
type Namespace string

const (
	NamespacePosts           Namespace = "posts"
	NamespaceComments        Namespace = "comments"
	NamespaceMediaFiles      Namespace = "media_files"
	NamespaceMediaCategories Namespace = "media_categories"
)

// TTL returns how long entries in the namespace stay fresh.
func (n Namespace) TTL() time.Duration {
	switch n {
	case NamespaceMediaFiles, NamespaceMediaCategories:
		return 10 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// Operation is the kind of write performed against the backend.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Entity is the kind of record a backend write touched.
type Entity string

const (
	EntityPost    Entity = "post"
	EntityComment Entity = "comment"
	EntityProfile Entity = "profile"
	EntityMedia   Entity = "media"
)

// Store is the local cache plus the like ledger and session flags. The
// cache is a disposable projection of the backend: every accessor is
// best-effort, and a storage failure surfaces as a plain cache miss so the
// read path falls through to the backend. The like ledger is the one piece
// of client-owned state with no server equivalent; it never expires and
// survives every cache invalidation.
type Store interface {
	// === Cached lists (TTL per namespace) ===
	GetPosts() ([]Post, bool)
	SavePosts(posts []Post) error

	GetComments(postID int64) ([]Comment, bool)
	SaveComments(postID int64, comments []Comment) error

	GetMediaFiles() ([]MediaFile, bool)
	SaveMediaFiles(files []MediaFile) error

	GetMediaCategories() ([]string, bool)
	SaveMediaCategories(categories []string) error

	// === Point edits over cached collections ===
	// Each is a read-modify-write that rewrites the whole cached list.
	// Fine at personal-blog volumes, not a scalability claim.
	UpdateCachedPost(p Post)
	RemoveCachedPost(id int64)
	PrependCachedPost(p Post)
	AdjustCachedThumbs(id int64, delta int)
	RemoveCachedMediaFile(name string)
	FindMediaFileByURL(url string) (MediaFile, bool)

	// === Like ledger ===
	IsLiked(postID int64) bool
	SetLiked(postID int64, liked bool)
	ToggleLiked(postID int64) bool
	LikedPosts() map[int64]bool
	ClearLikes()

	// === Admin session ===
	GetSession() (Session, bool)
	SaveSession(s Session) error
	ClearSession()

	// === Invalidation ===
	Invalidate(namespaces ...Namespace)
	InvalidateAll() // clears every cache namespace, never the ledger

	Close() error
}
