package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onemec/gmeet-slash-cmd/internal/identity"
	"github.com/onemec/gmeet-slash-cmd/internal/kv"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
)

// StateStore persists one authorization record per identity.
type StateStore struct {
	kv     kv.Store
	logger *slog.Logger
}

// NewStateStore creates a StateStore on top of store.
func NewStateStore(store kv.Store, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{
		kv:     store,
		logger: logger.With(logging.Service("auth_store")),
	}
}

// Key returns the storage key of the record for id. Valid identities map
// to distinct keys.
func Key(id identity.Identity) string {
	return id.Team + "/" + id.ID + "/auth"
}

// Load returns the record for id, or nil if there is none.
// An undecodable record is logged and treated as absent.
func (s *StateStore) Load(ctx context.Context, id identity.Identity) (State, error) {
	st, _, err := s.load(ctx, id)
	return st, err
}

// load also returns the raw bytes so that a later Replace can be
// conditioned on them.
func (s *StateStore) load(ctx context.Context, id identity.Identity) (State, []byte, error) {
	raw, err := s.kv.Get(ctx, Key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load auth record: %w", err)
	}

	st, err := UnmarshalState(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable auth record",
			logging.Team(id.Team),
			logging.UserHash(id.Team, id.ID),
			logging.Err(err))
		return nil, raw, nil
	}
	return st, raw, nil
}

// Save overwrites the record for id.
func (s *StateStore) Save(ctx context.Context, id identity.Identity, st State) error {
	data, err := s.encode(id, st)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, Key(id), data); err != nil {
		return fmt.Errorf("save auth record: %w", err)
	}
	return nil
}

// Replace overwrites the record for id only if it still holds prev.
// Stores without compare-and-swap fall back to an unconditional write.
// A lost race returns ErrConflict.
func (s *StateStore) Replace(ctx context.Context, id identity.Identity, prev []byte, st State) error {
	sw, ok := s.kv.(kv.Swapper)
	if !ok || prev == nil {
		return s.Save(ctx, id, st)
	}

	data, err := s.encode(id, st)
	if err != nil {
		return err
	}
	swapped, err := sw.CompareAndSwap(ctx, Key(id), prev, data)
	if err != nil {
		return fmt.Errorf("replace auth record: %w", err)
	}
	if !swapped {
		return ErrConflict
	}
	return nil
}

func (s *StateStore) encode(id identity.Identity, st State) ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("invalid identity %q", id.String())
	}
	if st == nil {
		return nil, fmt.Errorf("nil auth record")
	}
	if st.Identity() != id {
		return nil, fmt.Errorf("record identity %s does not match key identity %s", st.Identity(), id)
	}
	return MarshalState(st)
}
