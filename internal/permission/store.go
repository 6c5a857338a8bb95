// Package permission persists and brokers per-extension trust decisions
// for connection sharing.
//
// Decisions live as one JSON blob in the secret store under a single
// well-known key. Absence of an entry means "undecided"; the only decided
// states are approved and denied.
package permission

import (
	"context"
	"encoding/json"

	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/secrets"
)

// StorageKey is the secret-store entry holding the permission map.
const StorageKey = "connshare.permissions"

// Decision is a persisted per-extension trust decision.
type Decision string

const (
	Approved Decision = "approved"
	Denied   Decision = "denied"
)

// Store is the durable permission map. All writes are read-modify-write on
// the whole blob: two concurrent updates for different extensions can lose
// one write (last write wins). That is an accepted consistency gap — writes
// are triggered by human-paced interactive prompts.
type Store struct {
	secrets secrets.Store
	log     *logger.Logger
}

// NewStore returns a permission store backed by sec.
func NewStore(sec secrets.Store) *Store {
	return &Store{
		secrets: sec,
		log:     logger.Component("permission"),
	}
}

// All loads the full extension→decision map. A missing entry initializes
// and persists an empty map; a corrupt blob is reset to an empty map and
// immediately re-persisted (self-healing).
func (s *Store) All(ctx context.Context) (map[string]Decision, error) {
	raw, ok, err := s.secrets.Get(ctx, StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		m := map[string]Decision{}
		if err := s.save(ctx, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	m := map[string]Decision{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		s.log.Warnf("permission store is corrupt, resetting: %v", err)
		m = map[string]Decision{}
		if err := s.save(ctx, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns the persisted decision for extensionID. ok is false when the
// extension has never been decided.
func (s *Store) Get(ctx context.Context, extensionID string) (Decision, bool, error) {
	m, err := s.All(ctx)
	if err != nil {
		return "", false, err
	}
	d, ok := m[extensionID]
	return d, ok, nil
}

// Set records a decision for extensionID, replacing any previous one.
func (s *Store) Set(ctx context.Context, extensionID string, d Decision) error {
	m, err := s.All(ctx)
	if err != nil {
		return err
	}
	m[extensionID] = d
	return s.save(ctx, m)
}

// Remove deletes the decision for extensionID, returning it to undecided.
func (s *Store) Remove(ctx context.Context, extensionID string) error {
	m, err := s.All(ctx)
	if err != nil {
		return err
	}
	if _, ok := m[extensionID]; !ok {
		return nil
	}
	delete(m, extensionID)
	return s.save(ctx, m)
}

// Clear writes an empty map unconditionally.
func (s *Store) Clear(ctx context.Context) error {
	return s.save(ctx, map[string]Decision{})
}

func (s *Store) save(ctx context.Context, m map[string]Decision) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.secrets.Set(ctx, StorageKey, string(raw))
}
