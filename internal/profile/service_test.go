package profile

import (
	"context"
	"testing"

	"github.com/plumekit/plume/internal/domain"
	"github.com/plumekit/plume/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeProfiles struct {
	rows   map[int64]domain.Profile
	nextID int64
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: make(map[int64]domain.Profile), nextID: 1}
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) GetProfileByName(ctx context.Context, name string) (*domain.Profile, error) {
	for _, p := range f.rows {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (f *fakeProfiles) UpsertProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	if p.ID == 0 {
		p.ID = f.nextID
		f.nextID++
	}
	f.rows[p.ID] = p
	return &p, nil
}

func (f *fakeProfiles) UpdatePassword(ctx context.Context, id int64, hash string) error {
	p, ok := f.rows[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Password = hash
	f.rows[id] = p
	return nil
}

func newFixture(t *testing.T) (*Service, *fakeProfiles, *store.BlogStore) {
	t.Helper()
	s, err := store.NewBlogStore(t.TempDir(), "https://example.supabase.co")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	repo := newFakeProfiles()
	return NewService(repo, s, nil), repo, s
}

func TestUpsertHashesNewPassword(t *testing.T) {
	svc, repo, _ := newFixture(t)
	ctx := context.Background()

	saved, err := svc.Upsert(ctx, domain.Profile{Name: "admin", Password: "hunter2"})
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", repo.rows[saved.ID].Password, "plaintext must not reach the backend")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.rows[saved.ID].Password), []byte("hunter2")))
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, s := newFixture(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.Profile{Name: "admin", Password: "hunter2"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, domain.ErrAuthFailed)
	_, ok := s.GetSession()
	require.False(t, ok)

	sess, err := svc.Login(ctx, "admin", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "admin", sess.Name)

	got, ok := svc.Session()
	require.True(t, ok)
	require.Equal(t, sess.ProfileID, got.ProfileID)

	svc.Logout()
	_, ok = svc.Session()
	require.False(t, ok)
}

func TestLoginUnknownName(t *testing.T) {
	svc, _, _ := newFixture(t)
	_, err := svc.Login(context.Background(), "nobody", "pw")
	require.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestUpdatePassword(t *testing.T) {
	svc, repo, _ := newFixture(t)
	ctx := context.Background()

	saved, err := svc.Upsert(ctx, domain.Profile{Name: "admin", Password: "old"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePassword(ctx, saved.ID, "new"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.rows[saved.ID].Password), []byte("new")))

	_, err = svc.Login(ctx, "admin", "old")
	require.ErrorIs(t, err, domain.ErrAuthFailed)
	_, err = svc.Login(ctx, "admin", "new")
	require.NoError(t, err)
}

func TestLogoutKeepsLedgerResetClearsIt(t *testing.T) {
	svc, _, s := newFixture(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.Profile{Name: "admin", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "admin", "pw")
	require.NoError(t, err)

	s.SetLiked(42, true)

	svc.Logout()
	require.True(t, s.IsLiked(42), "logout must not touch the ledger")

	s2, err := svc.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	require.NotNil(t, s2)

	svc.Reset()
	require.False(t, s.IsLiked(42))
	_, ok := svc.Session()
	require.False(t, ok)
}
