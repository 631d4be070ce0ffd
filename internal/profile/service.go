package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/plumekit/plume/internal/cache"
	"github.com/plumekit/plume/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Service manages the single admin profile and the local login session.
// The session is a per-machine flag in the store, not a real credential;
// the backend never sees it.
type Service struct {
	repo   domain.ProfileRepository
	store  domain.Store
	logger *slog.Logger
}

// NewService creates a new profile service.
func NewService(repo domain.ProfileRepository, store domain.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

// Upsert creates or updates the profile. A password on a new profile
// (zero id) is hashed before it leaves the process; updates never carry a
// password through this path, see UpdatePassword.
func (s *Service) Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	if p.ID == 0 && p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		p.Password = string(hash)
	}

	saved, err := s.repo.UpsertProfile(ctx, p)
	if err != nil {
		s.logger.Error("failed to upsert profile", "error", err)
		return nil, err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationUpdate, domain.EntityProfile)
	s.logger.Info("saved profile", "profileID", saved.ID)
	return saved, nil
}

// UpdatePassword hashes and stores a new password for the profile.
func (s *Service) UpdatePassword(ctx context.Context, id int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		s.logger.Error("failed to update password", "error", err, "profileID", id)
		return err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationUpdate, domain.EntityProfile)
	s.logger.Info("updated password", "profileID", id)
	return nil
}

// Login validates the credentials against the stored hash and records a
// local session on success.
func (s *Service) Login(ctx context.Context, name, password string) (*domain.Session, error) {
	profile, err := s.repo.GetProfileByName(ctx, name)
	if err != nil {
		s.logger.Warn("login failed", "name", name, "error", err)
		return nil, domain.ErrAuthFailed
	}
	if profile.Password == "" {
		return nil, domain.ErrAuthFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		s.logger.Warn("login rejected", "name", name)
		return nil, domain.ErrAuthFailed
	}

	sess := domain.Session{
		ProfileID: profile.ID,
		Name:      profile.Name,
		AuthedAt:  time.Now(),
	}
	if err := s.store.SaveSession(sess); err != nil {
		s.logger.Error("failed to persist session", "error", err)
	}
	s.logger.Info("logged in", "name", profile.Name)
	return &sess, nil
}

// Session returns the current local session, if any.
func (s *Service) Session() (domain.Session, bool) {
	return s.store.GetSession()
}

// Logout clears the local session. The like ledger is left alone; it is
// cleared only by Reset.
func (s *Service) Logout() {
	s.store.ClearSession()
	s.logger.Info("logged out")
}

// Reset is the explicit "log out and wipe everything local" flow: session,
// caches and the like ledger.
func (s *Service) Reset() {
	s.store.ClearSession()
	s.store.InvalidateAll()
	s.store.ClearLikes()
	s.logger.Info("reset local state")
}
