package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/plumekit/plume/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketCache   = []byte("cache")
	bucketLikes   = []byte("likes")
	bucketSession = []byte("session")
)

const (
	keyLikedPosts = "likedPosts"
	keySession    = "session"
)

// cacheEntry is the TTL envelope persisted around every cached value.
type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	StoredAt  time.Time       `json:"storedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// BlogStore implements domain.Store using BoltDB. All cache reads and
// writes are best-effort: a missing database, a corrupt entry or a write
// failure degrades to cache-miss behavior and never reaches the caller.
type BlogStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte

	now func() time.Time
}

// NewBlogStore opens (or creates) the cache database. An empty baseCacheDir
// selects memory-only mode with no persistence.
func NewBlogStore(baseCacheDir, backendURL string) (*BlogStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &BlogStore{cache: make(map[string][]byte), now: time.Now}, nil
	}

	dir := baseCacheDir
	if backendURL != "" {
		dir = filepath.Join(baseCacheDir, hashBackendURL(backendURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "plume.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCache, bucketLikes, bucketSession} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BlogStore{db: db, cache: make(map[string][]byte), now: time.Now}, nil
}

func hashBackendURL(backendURL string) string {
	normalized := strings.TrimRight(strings.ToLower(backendURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *BlogStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *BlogStore) readRaw(bucket []byte, key string) []byte {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return data
}

func (s *BlogStore) writeRaw(bucket []byte, key string, data []byte) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *BlogStore) deleteRaw(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

func (s *BlogStore) deletePrefix(bucket []byte, prefix string) {
	s.mu.Lock()
	cachePrefix := string(bucket) + ":" + prefix
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === TTL envelope ===

// setEntry wraps value in a cacheEntry stamped with the namespace TTL and
// overwrites any existing entry unconditionally.
func (s *BlogStore) setEntry(key string, ns domain.Namespace, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	now := s.now()
	entry := cacheEntry{
		Data:      data,
		StoredAt:  now,
		ExpiresAt: now.Add(ns.TTL()),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.writeRaw(bucketCache, key, raw)
}

// getEntry unwraps a cacheEntry into dest. A missing, corrupt or expired
// entry is a miss; expired entries are removed on detection (lazy expiry,
// no background sweep).
func (s *BlogStore) getEntry(key string, dest interface{}) bool {
	raw := s.readRaw(bucketCache, key)
	if raw == nil {
		return false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Unparseable entry: treat as miss and drop it
		s.deleteRaw(bucketCache, key)
		return false
	}
	if s.now().After(entry.ExpiresAt) {
		s.deleteRaw(bucketCache, key)
		return false
	}
	return json.Unmarshal(entry.Data, dest) == nil
}

// === Posts ===

func (s *BlogStore) GetPosts() ([]domain.Post, bool) {
	var posts []domain.Post
	ok := s.getEntry("posts", &posts)
	return posts, ok
}

func (s *BlogStore) SavePosts(posts []domain.Post) error {
	return s.setEntry("posts", domain.NamespacePosts, posts)
}

// === Comments (keyed per post) ===

func (s *BlogStore) GetComments(postID int64) ([]domain.Comment, bool) {
	var comments []domain.Comment
	ok := s.getEntry(commentsKey(postID), &comments)
	return comments, ok
}

func (s *BlogStore) SaveComments(postID int64, comments []domain.Comment) error {
	return s.setEntry(commentsKey(postID), domain.NamespaceComments, comments)
}

func commentsKey(postID int64) string {
	return "comments:" + strconv.FormatInt(postID, 10)
}

// === Media ===

func (s *BlogStore) GetMediaFiles() ([]domain.MediaFile, bool) {
	var files []domain.MediaFile
	ok := s.getEntry("media_files", &files)
	return files, ok
}

func (s *BlogStore) SaveMediaFiles(files []domain.MediaFile) error {
	return s.setEntry("media_files", domain.NamespaceMediaFiles, files)
}

func (s *BlogStore) GetMediaCategories() ([]string, bool) {
	var categories []string
	ok := s.getEntry("media_categories", &categories)
	return categories, ok
}

func (s *BlogStore) SaveMediaCategories(categories []string) error {
	return s.setEntry("media_categories", domain.NamespaceMediaCategories, categories)
}

// === Point edits over cached collections ===
//
// Each edit reads the whole cached list, rewrites one element and saves the
// list back under the entry's original timestamps. Editing never refreshes
// a TTL: the list as a whole is no fresher than when it was fetched.

// editEntry applies fn to the decoded payload and writes it back with the
// envelope timestamps preserved. A miss (absent, corrupt, expired) is a
// silent no-op.
func editEntry[T any](s *BlogStore, key string, fn func([]T) []T) {
	raw := s.readRaw(bucketCache, key)
	if raw == nil {
		return
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.deleteRaw(bucketCache, key)
		return
	}
	if s.now().After(entry.ExpiresAt) {
		s.deleteRaw(bucketCache, key)
		return
	}
	var items []T
	if err := json.Unmarshal(entry.Data, &items); err != nil {
		s.deleteRaw(bucketCache, key)
		return
	}

	data, err := json.Marshal(fn(items))
	if err != nil {
		return
	}
	entry.Data = data
	out, err := json.Marshal(entry)
	if err != nil {
		return
	}
	s.writeRaw(bucketCache, key, out)
}

func (s *BlogStore) UpdateCachedPost(p domain.Post) {
	editEntry(s, "posts", func(posts []domain.Post) []domain.Post {
		for i := range posts {
			if posts[i].ID == p.ID {
				posts[i] = p
			}
		}
		return posts
	})
}

func (s *BlogStore) RemoveCachedPost(id int64) {
	editEntry(s, "posts", func(posts []domain.Post) []domain.Post {
		out := posts[:0]
		for _, p := range posts {
			if p.ID != id {
				out = append(out, p)
			}
		}
		return out
	})
}

func (s *BlogStore) PrependCachedPost(p domain.Post) {
	editEntry(s, "posts", func(posts []domain.Post) []domain.Post {
		return append([]domain.Post{p}, posts...)
	})
}

func (s *BlogStore) AdjustCachedThumbs(id int64, delta int) {
	editEntry(s, "posts", func(posts []domain.Post) []domain.Post {
		for i := range posts {
			if posts[i].ID == id {
				posts[i].Thumbs += delta
				if posts[i].Thumbs < 0 {
					posts[i].Thumbs = 0
				}
			}
		}
		return posts
	})
}

func (s *BlogStore) RemoveCachedMediaFile(name string) {
	editEntry(s, "media_files", func(files []domain.MediaFile) []domain.MediaFile {
		out := files[:0]
		for _, f := range files {
			if f.Name != name {
				out = append(out, f)
			}
		}
		return out
	})
}

// FindMediaFileByURL resolves a file's display name from the cached media
// list without a round trip. Linear scan; misses when the list is not cached.
func (s *BlogStore) FindMediaFileByURL(url string) (domain.MediaFile, bool) {
	files, ok := s.GetMediaFiles()
	if !ok {
		return domain.MediaFile{}, false
	}
	for _, f := range files {
		if f.URL == url {
			return f, true
		}
	}
	return domain.MediaFile{}, false
}

// === Like ledger ===
//
// The ledger lives in its own bucket under a single JSON object of
// id -> true. Absence of a key means not-liked; explicit negatives are
// never stored. Cache invalidation never touches this bucket.

func (s *BlogStore) likedPosts() map[string]bool {
	raw := s.readRaw(bucketLikes, keyLikedPosts)
	if raw == nil {
		return map[string]bool{}
	}
	liked := map[string]bool{}
	if err := json.Unmarshal(raw, &liked); err != nil {
		return map[string]bool{}
	}
	return liked
}

func (s *BlogStore) saveLikedPosts(liked map[string]bool) {
	data, err := json.Marshal(liked)
	if err != nil {
		return
	}
	s.writeRaw(bucketLikes, keyLikedPosts, data)
}

func (s *BlogStore) IsLiked(postID int64) bool {
	return s.likedPosts()[strconv.FormatInt(postID, 10)]
}

func (s *BlogStore) SetLiked(postID int64, liked bool) {
	posts := s.likedPosts()
	key := strconv.FormatInt(postID, 10)
	if liked {
		posts[key] = true
	} else {
		delete(posts, key)
	}
	s.saveLikedPosts(posts)
}

func (s *BlogStore) ToggleLiked(postID int64) bool {
	next := !s.IsLiked(postID)
	s.SetLiked(postID, next)
	return next
}

func (s *BlogStore) LikedPosts() map[int64]bool {
	out := map[int64]bool{}
	for key, liked := range s.likedPosts() {
		if !liked {
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = true
	}
	return out
}

// ClearLikes wipes the ledger. Only explicit reset flows call this; cache
// invalidation never does.
func (s *BlogStore) ClearLikes() {
	s.deleteRaw(bucketLikes, keyLikedPosts)
}

// === Admin session ===

func (s *BlogStore) GetSession() (domain.Session, bool) {
	raw := s.readRaw(bucketSession, keySession)
	if raw == nil {
		return domain.Session{}, false
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, false
	}
	return sess, true
}

func (s *BlogStore) SaveSession(sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.writeRaw(bucketSession, keySession, data)
}

func (s *BlogStore) ClearSession() {
	s.deleteRaw(bucketSession, keySession)
}

// === Invalidation ===

// Invalidate drops the given namespaces. The like ledger and session live
// in separate buckets and are untouched by construction.
func (s *BlogStore) Invalidate(namespaces ...domain.Namespace) {
	for _, ns := range namespaces {
		switch ns {
		case domain.NamespaceComments:
			s.deletePrefix(bucketCache, "comments:")
		default:
			s.deleteRaw(bucketCache, string(ns))
		}
	}
}

// InvalidateAll clears every cache namespace, preserving the ledger and
// session buckets.
func (s *BlogStore) InvalidateAll() {
	s.mu.Lock()
	cachePrefix := string(bucketCache) + ":"
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCache)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
