// Package cache holds the invalidation policy that keeps the local store
// consistent with backend writes. The policy is a fixed table; it never
// touches the like ledger.
package cache

import (
	"log/slog"

	"github.com/plumekit/plume/internal/domain"
)

// NamespacesFor returns the cache namespaces to clear after a backend write
// of the given kind. The second return is false for entity kinds the table
// does not know, in which case the caller should fall back to a full clear.
//
// Profile records are not cached, so profile writes are a deliberate no-op
// rather than an unknown entity.
func NamespacesFor(op domain.Operation, entity domain.Entity) ([]domain.Namespace, bool) {
	_ = op // every operation kind invalidates the same namespaces

	switch entity {
	case domain.EntityPost:
		return []domain.Namespace{domain.NamespacePosts}, true
	case domain.EntityComment:
		// Comments are embedded in cached post objects, and cached on
		// their own per post.
		return []domain.Namespace{domain.NamespacePosts, domain.NamespaceComments}, true
	case domain.EntityProfile:
		return nil, true
	case domain.EntityMedia:
		return []domain.Namespace{domain.NamespaceMediaFiles}, true
	default:
		return nil, false
	}
}

// AfterMutation must be called after every successful backend write. It
// applies the policy table; an entity kind outside the table triggers a
// conservative full cache clear. Either way the like ledger is preserved:
// it lives outside the cache namespaces by construction.
func AfterMutation(store domain.Store, logger *slog.Logger, op domain.Operation, entity domain.Entity) {
	if logger == nil {
		logger = slog.Default()
	}

	namespaces, known := NamespacesFor(op, entity)
	if !known {
		logger.Warn("unknown entity kind, clearing all caches", "operation", op, "entity", entity)
		store.InvalidateAll()
		return
	}
	if len(namespaces) == 0 {
		logger.Debug("no caches to invalidate", "operation", op, "entity", entity)
		return
	}

	store.Invalidate(namespaces...)
	logger.Debug("invalidated caches", "operation", op, "entity", entity, "namespaces", namespaces)
}
