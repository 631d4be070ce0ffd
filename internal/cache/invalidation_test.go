package cache

import (
	"testing"

	"github.com/plumekit/plume/internal/domain"
	"github.com/plumekit/plume/internal/store"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.BlogStore {
	t.Helper()
	s, err := store.NewBlogStore(t.TempDir(), "https://example.supabase.co")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *store.BlogStore) {
	t.Helper()
	require.NoError(t, s.SavePosts([]domain.Post{{ID: 1, Thumbs: 3}}))
	require.NoError(t, s.SaveComments(1, []domain.Comment{{ID: 5, PostID: 1}}))
	require.NoError(t, s.SaveMediaFiles([]domain.MediaFile{{Name: "a.png"}}))
	require.NoError(t, s.SaveMediaCategories([]string{"images"}))
	s.SetLiked(1, true)
}

func TestPolicyTable(t *testing.T) {
	cases := []struct {
		entity domain.Entity
		want   []domain.Namespace
	}{
		{domain.EntityPost, []domain.Namespace{domain.NamespacePosts}},
		{domain.EntityComment, []domain.Namespace{domain.NamespacePosts, domain.NamespaceComments}},
		{domain.EntityProfile, nil},
		{domain.EntityMedia, []domain.Namespace{domain.NamespaceMediaFiles}},
	}
	for _, tc := range cases {
		for _, op := range []domain.Operation{domain.OperationCreate, domain.OperationUpdate, domain.OperationDelete} {
			got, known := NamespacesFor(op, tc.entity)
			require.True(t, known, "entity %s must be in the table", tc.entity)
			require.Equal(t, tc.want, got)
		}
	}

	_, known := NamespacesFor(domain.OperationCreate, domain.Entity("session"))
	require.False(t, known)
}

func TestAfterMutationPostClearsOnlyPosts(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	AfterMutation(s, nil, domain.OperationCreate, domain.EntityPost)

	_, ok := s.GetPosts()
	require.False(t, ok)
	_, ok = s.GetMediaFiles()
	require.True(t, ok, "media namespace is independent of posts")
	_, ok = s.GetMediaCategories()
	require.True(t, ok)
}

func TestAfterMutationCommentClearsEmbeddingPosts(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	AfterMutation(s, nil, domain.OperationDelete, domain.EntityComment)

	_, ok := s.GetPosts()
	require.False(t, ok, "comments are embedded in cached posts")
	_, ok = s.GetComments(1)
	require.False(t, ok)
	_, ok = s.GetMediaFiles()
	require.True(t, ok)
}

func TestAfterMutationProfileIsNoOp(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	AfterMutation(s, nil, domain.OperationUpdate, domain.EntityProfile)

	_, ok := s.GetPosts()
	require.True(t, ok)
	_, ok = s.GetMediaFiles()
	require.True(t, ok)
}

func TestAfterMutationUnknownEntityClearsEverything(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	AfterMutation(s, nil, domain.OperationDelete, domain.Entity("mystery"))

	_, ok := s.GetPosts()
	require.False(t, ok)
	_, ok = s.GetComments(1)
	require.False(t, ok)
	_, ok = s.GetMediaFiles()
	require.False(t, ok)
	_, ok = s.GetMediaCategories()
	require.False(t, ok)
}

func TestAfterMutationAlwaysPreservesLedger(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	for _, entity := range []domain.Entity{
		domain.EntityPost, domain.EntityComment, domain.EntityProfile,
		domain.EntityMedia, domain.Entity("mystery"),
	} {
		for _, op := range []domain.Operation{domain.OperationCreate, domain.OperationUpdate, domain.OperationDelete} {
			AfterMutation(s, nil, op, entity)
			require.True(t, s.IsLiked(1), "%s %s must not touch the ledger", op, entity)
		}
	}
}
