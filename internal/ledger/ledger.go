// Package ledger persists per-user authorization flags and prepaid credit
// balances in a flat JSON file, rewritten wholesale on every mutation.
package ledger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// fileState is the on-disk shape of the ledger.
type fileState struct {
	Allowed map[string]bool `json:"allowed"`
	Credits map[string]int  `json:"credits"`
}

// UserBalance pairs an allow-listed user with its balance, for listings.
type UserBalance struct {
	UserID  string
	Credits int
}

// Store keeps authorization flags and credit balances, backed by a JSON
// file at an injected path. All mutations hold the mutex across the full
// read-modify-write-persist sequence.
type Store struct {
	mu      sync.Mutex
	path    string
	allowed map[string]bool
	credits map[string]int
	logger  *slog.Logger
}

// NewStore creates a store backed by the file at path. Call Load before use.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:    path,
		allowed: make(map[string]bool),
		credits: make(map[string]int),
		logger:  logger,
	}
}

// Load reads the persisted state. A missing or malformed file reinitializes
// an empty ledger (granting initialAllowed) and writes it back; parse errors
// are logged, never returned.
func (s *Store) Load(initialAllowed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowed = make(map[string]bool)
	s.credits = make(map[string]int)

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var st fileState
		if jsonErr := json.Unmarshal(data, &st); jsonErr != nil {
			s.logger.Warn("ledger file malformed, reinitializing", "path", s.path, "error", jsonErr)
		} else {
			if st.Allowed != nil {
				s.allowed = st.Allowed
			}
			if st.Credits != nil {
				s.credits = st.Credits
			}
			// Clamp anything negative that snuck into the file.
			for id, c := range s.credits {
				if c < 0 {
					s.credits[id] = 0
				}
			}
			return nil
		}
	case os.IsNotExist(err):
		s.logger.Info("ledger file not found, initializing empty", "path", s.path)
	default:
		s.logger.Warn("ledger file unreadable, reinitializing", "path", s.path, "error", err)
	}

	for _, id := range initialAllowed {
		s.allowed[id] = true
	}
	s.persist()
	return nil
}

// Credits returns the balance for a user, 0 for unknown users.
func (s *Store) Credits(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits[userID]
}

// AddCredits adds delta (may be negative) to a user's balance, clamping the
// result at zero, and returns the new balance.
func (s *Store) AddCredits(userID string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.credits[userID] + delta
	if next < 0 {
		next = 0
	}
	s.credits[userID] = next
	s.persist()
	return next
}

// SetCredits sets a user's balance, clamping at zero, and returns it.
func (s *Store) SetCredits(userID string, amount int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 0 {
		amount = 0
	}
	s.credits[userID] = amount
	s.persist()
	return amount
}

// ConsumeCredits debits cost from a user's balance. It fails without
// mutation when the balance is insufficient.
func (s *Store) ConsumeCredits(userID string, cost int) (ok bool, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.credits[userID]
	if balance < cost {
		return false, balance
	}
	s.credits[userID] = balance - cost
	s.persist()
	return true, balance - cost
}

// Grant marks a user as allowed to perform lookups.
func (s *Store) Grant(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed[userID] = true
	s.persist()
}

// Revoke clears a user's allowed flag. Credits are kept.
func (s *Store) Revoke(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.allowed, userID)
	s.persist()
}

// IsAllowed reports whether a user may perform lookups.
func (s *Store) IsAllowed(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowed[userID]
}

// AllowedUsers lists allow-listed users with their balances, sorted by ID.
func (s *Store) AllowedUsers() []UserBalance {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]UserBalance, 0, len(s.allowed))
	for id := range s.allowed {
		out = append(out, UserBalance{UserID: id, Credits: s.credits[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// persist rewrites the full state to disk. Callers hold s.mu. A failed save
// is logged and not retried; write volume is a handful per minute at most.
func (s *Store) persist() {
	st := fileState{Allowed: s.allowed, Credits: s.credits}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Error("marshal ledger", "error", err)
		return
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.logger.Error("create ledger directory", "path", dir, "error", err)
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.logger.Error("write ledger file", "path", s.path, "error", err)
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
