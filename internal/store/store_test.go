package store

import (
	"testing"
	"time"

	"github.com/plumekit/plume/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BlogStore {
	t.Helper()
	s, err := NewBlogStore(t.TempDir(), "https://example.supabase.co")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func somePosts() []domain.Post {
	return []domain.Post{
		{ID: 3, Content: "third", Thumbs: 5},
		{ID: 2, Content: "second", Thumbs: 0},
		{ID: 1, Content: "first", Thumbs: 2},
	}
}

func TestPostsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.GetPosts()
	require.False(t, ok, "cold cache must miss")

	require.NoError(t, s.SavePosts(somePosts()))

	posts, ok := s.GetPosts()
	require.True(t, ok)
	require.Len(t, posts, 3)
	require.Equal(t, int64(3), posts[0].ID)
}

func TestTTLExpiry(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.SavePosts(somePosts()))

	// Fresh right up to the deadline
	s.now = func() time.Time { return base.Add(domain.NamespacePosts.TTL()) }
	_, ok := s.GetPosts()
	require.True(t, ok)

	// One tick past the deadline: miss, and the entry is removed
	s.now = func() time.Time { return base.Add(domain.NamespacePosts.TTL() + time.Millisecond) }
	_, ok = s.GetPosts()
	require.False(t, ok)

	// Rolling the clock back must not resurrect the entry
	s.now = func() time.Time { return base }
	_, ok = s.GetPosts()
	require.False(t, ok, "expired entry must be deleted, not merely hidden")
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.writeRaw(bucketCache, "posts", []byte("{not json")))
	_, ok := s.GetPosts()
	require.False(t, ok)

	// Wrong shape inside a valid envelope is also a miss
	require.NoError(t, s.writeRaw(bucketCache, "media_files", []byte(`{"data":42,"storedAt":"2026-01-01T00:00:00Z","expiresAt":"2100-01-01T00:00:00Z"}`)))
	_, ok = s.GetMediaFiles()
	require.False(t, ok)
}

func TestCommentsKeyedPerPost(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveComments(1, []domain.Comment{{ID: 10, PostID: 1, Content: "hi"}}))
	require.NoError(t, s.SaveComments(2, []domain.Comment{{ID: 20, PostID: 2, Content: "yo"}}))

	cs, ok := s.GetComments(1)
	require.True(t, ok)
	require.Len(t, cs, 1)
	require.Equal(t, int64(10), cs[0].ID)

	s.Invalidate(domain.NamespaceComments)
	_, ok = s.GetComments(1)
	require.False(t, ok)
	_, ok = s.GetComments(2)
	require.False(t, ok)
}

func TestPointEditsRewriteList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePosts(somePosts()))

	s.UpdateCachedPost(domain.Post{ID: 2, Content: "edited", Thumbs: 1})
	s.RemoveCachedPost(1)
	s.PrependCachedPost(domain.Post{ID: 4, Content: "fourth"})

	posts, ok := s.GetPosts()
	require.True(t, ok)
	require.Len(t, posts, 3)
	require.Equal(t, int64(4), posts[0].ID)
	require.Equal(t, "edited", posts[2].Content)
}

func TestAdjustThumbsFloorsAtZero(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePosts(somePosts()))

	s.AdjustCachedThumbs(3, 1)
	s.AdjustCachedThumbs(2, -1)

	posts, _ := s.GetPosts()
	require.Equal(t, 6, posts[0].Thumbs)
	require.Equal(t, 0, posts[1].Thumbs, "thumbs never go negative")
}

func TestEditPreservesExpiry(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.SavePosts(somePosts()))

	// Edit late in the entry's life; the edit must not extend the TTL
	s.now = func() time.Time { return base.Add(4 * time.Minute) }
	s.AdjustCachedThumbs(3, 1)

	s.now = func() time.Time { return base.Add(5*time.Minute + time.Second) }
	_, ok := s.GetPosts()
	require.False(t, ok, "point edits must not refresh the TTL")
}

func TestFindMediaFileByURL(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.FindMediaFileByURL("https://cdn/x.png")
	require.False(t, ok, "no cached list means no resolution")

	require.NoError(t, s.SaveMediaFiles([]domain.MediaFile{
		{Name: "x.png", URL: "https://cdn/x.png", Type: "image/png"},
		{Name: "y.mp4", URL: "https://cdn/y.mp4", Type: "video/mp4"},
	}))

	f, ok := s.FindMediaFileByURL("https://cdn/y.mp4")
	require.True(t, ok)
	require.Equal(t, "y.mp4", f.Name)

	s.RemoveCachedMediaFile("y.mp4")
	_, ok = s.FindMediaFileByURL("https://cdn/y.mp4")
	require.False(t, ok)
}

func TestLedgerDefaultsToFalse(t *testing.T) {
	s := newTestStore(t)
	require.False(t, s.IsLiked(12345))
	require.Empty(t, s.LikedPosts())
}

func TestToggleFlipsAndPersists(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.ToggleLiked(42))
	require.True(t, s.IsLiked(42))
	require.False(t, s.ToggleLiked(42))
	require.False(t, s.IsLiked(42))

	s.SetLiked(7, true)
	require.Equal(t, map[int64]bool{7: true}, s.LikedPosts())

	// Un-liking removes the key rather than storing an explicit negative
	s.SetLiked(7, false)
	require.Empty(t, s.LikedPosts())
}

func TestInvalidationPreservesLedgerAndSession(t *testing.T) {
	s := newTestStore(t)

	s.SetLiked(1, true)
	s.SetLiked(9, true)
	require.NoError(t, s.SaveSession(domain.Session{ProfileID: 1, Name: "admin"}))
	require.NoError(t, s.SavePosts(somePosts()))
	require.NoError(t, s.SaveMediaFiles([]domain.MediaFile{{Name: "a.png"}}))

	s.Invalidate(domain.NamespacePosts)
	_, ok := s.GetPosts()
	require.False(t, ok)
	require.True(t, s.IsLiked(1))

	s.InvalidateAll()
	_, ok = s.GetMediaFiles()
	require.False(t, ok)
	require.True(t, s.IsLiked(1))
	require.True(t, s.IsLiked(9))
	sess, ok := s.GetSession()
	require.True(t, ok)
	require.Equal(t, "admin", sess.Name)
}

func TestClearLikesIsExplicitOnly(t *testing.T) {
	s := newTestStore(t)
	s.SetLiked(1, true)
	s.ClearLikes()
	require.False(t, s.IsLiked(1))
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.GetSession()
	require.False(t, ok)

	require.NoError(t, s.SaveSession(domain.Session{ProfileID: 1, Name: "admin", AuthedAt: time.Now()}))
	sess, ok := s.GetSession()
	require.True(t, ok)
	require.Equal(t, int64(1), sess.ProfileID)

	s.ClearSession()
	_, ok = s.GetSession()
	require.False(t, ok)
}

func TestMemoryOnlyMode(t *testing.T) {
	s, err := NewBlogStore("", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SavePosts(somePosts()))
	posts, ok := s.GetPosts()
	require.True(t, ok)
	require.Len(t, posts, 3)

	s.SetLiked(3, true)
	require.True(t, s.IsLiked(3))

	s.InvalidateAll()
	_, ok = s.GetPosts()
	require.False(t, ok)
	require.True(t, s.IsLiked(3))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBlogStore(dir, "https://example.supabase.co")
	require.NoError(t, err)
	require.NoError(t, s.SavePosts(somePosts()))
	s.SetLiked(2, true)
	require.NoError(t, s.Close())

	s2, err := NewBlogStore(dir, "https://example.supabase.co")
	require.NoError(t, err)
	defer s2.Close()

	posts, ok := s2.GetPosts()
	require.True(t, ok)
	require.Len(t, posts, 3)
	require.True(t, s2.IsLiked(2))
}
