package ledger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	s := NewStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := s.Load(nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestConsumeCredits(t *testing.T) {
	tests := []struct {
		name          string
		balance       int
		cost          int
		wantOK        bool
		wantRemaining int
	}{
		{name: "exact balance", balance: 3, cost: 3, wantOK: true, wantRemaining: 0},
		{name: "more than enough", balance: 5, cost: 1, wantOK: true, wantRemaining: 4},
		{name: "insufficient", balance: 2, cost: 3, wantOK: false, wantRemaining: 2},
		{name: "zero balance", balance: 0, cost: 1, wantOK: false, wantRemaining: 0},
		{name: "free lookup", balance: 0, cost: 0, wantOK: true, wantRemaining: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.SetCredits("u1", tt.balance)

			ok, remaining := s.ConsumeCredits("u1", tt.cost)
			if ok != tt.wantOK || remaining != tt.wantRemaining {
				t.Errorf("ConsumeCredits(%d from %d) = (%v, %d), want (%v, %d)",
					tt.cost, tt.balance, ok, remaining, tt.wantOK, tt.wantRemaining)
			}
			if got := s.Credits("u1"); got != tt.wantRemaining {
				t.Errorf("Credits() after consume = %d, want %d", got, tt.wantRemaining)
			}
		})
	}
}

func TestAddCredits_NeverNegative(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		delta   int
		want    int
	}{
		{name: "positive add", initial: 0, delta: 5, want: 5},
		{name: "negative within balance", initial: 5, delta: -3, want: 2},
		{name: "negative past zero clamps", initial: 2, delta: -10, want: 0},
		{name: "large negative on empty", initial: 0, delta: -1000000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if tt.initial != 0 {
				s.SetCredits("u1", tt.initial)
			}
			if got := s.AddCredits("u1", tt.delta); got != tt.want {
				t.Errorf("AddCredits(%d) = %d, want %d", tt.delta, got, tt.want)
			}
		})
	}
}

func TestSetCredits_ClampsNegative(t *testing.T) {
	s := newTestStore(t)
	if got := s.SetCredits("u1", -7); got != 0 {
		t.Errorf("SetCredits(-7) = %d, want 0", got)
	}
	if got := s.SetCredits("u1", 12); got != 12 {
		t.Errorf("SetCredits(12) = %d, want 12", got)
	}
}

func TestCredits_UnknownUserIsZero(t *testing.T) {
	s := newTestStore(t)
	if got := s.Credits("nobody"); got != 0 {
		t.Errorf("Credits(unknown) = %d, want 0", got)
	}
}

func TestGrantRevoke(t *testing.T) {
	s := newTestStore(t)

	if s.IsAllowed("u1") {
		t.Error("IsAllowed before grant = true, want false")
	}
	s.Grant("u1")
	if !s.IsAllowed("u1") {
		t.Error("IsAllowed after grant = false, want true")
	}

	s.SetCredits("u1", 4)
	s.Revoke("u1")
	if s.IsAllowed("u1") {
		t.Error("IsAllowed after revoke = true, want false")
	}
	if got := s.Credits("u1"); got != 4 {
		t.Errorf("Credits after revoke = %d, want 4 (revoke keeps credits)", got)
	}
}

func TestAllowedUsers_SortedWithBalances(t *testing.T) {
	s := newTestStore(t)
	s.Grant("30")
	s.Grant("12")
	s.SetCredits("12", 2)

	got := s.AllowedUsers()
	want := []UserBalance{{UserID: "12", Credits: 2}, {UserID: "30", Credits: 0}}
	if len(got) != len(want) {
		t.Fatalf("AllowedUsers() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedUsers()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoad_MissingFileInitializesAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	s := NewStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := s.Load([]string{"11", "22"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !s.IsAllowed("11") || !s.IsAllowed("22") {
		t.Error("initial allow-list not granted on empty init")
	}

	// The reinitialized ledger must have been written back.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ledger file not written: %v", err)
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("written ledger not valid JSON: %v", err)
	}
	if !st.Allowed["11"] {
		t.Error("written ledger missing initial allow-list entry")
	}
}

func TestLoad_CorruptFileFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := s.Load(nil); err != nil {
		t.Fatalf("Load() on corrupt file returned error %v, want nil", err)
	}
	if got := s.Credits("u1"); got != 0 {
		t.Errorf("Credits after corrupt load = %d, want 0", got)
	}
	if len(s.AllowedUsers()) != 0 {
		t.Error("corrupt load should yield an empty allow-list")
	}
}

func TestLoad_RoundTripsPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s := NewStore(path, logger)
	if err := s.Load(nil); err != nil {
		t.Fatal(err)
	}
	s.Grant("u1")
	s.SetCredits("u1", 9)

	// A fresh store over the same file sees the same state.
	s2 := NewStore(path, logger)
	if err := s2.Load(nil); err != nil {
		t.Fatal(err)
	}
	if !s2.IsAllowed("u1") || s2.Credits("u1") != 9 {
		t.Errorf("reloaded state = (allowed=%v, credits=%d), want (true, 9)",
			s2.IsAllowed("u1"), s2.Credits("u1"))
	}
}

func TestLoad_ClampsNegativeCreditsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(`{"allowed":{},"credits":{"u1":-3}}`), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := s.Load(nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Credits("u1"); got != 0 {
		t.Errorf("Credits loaded from negative value = %d, want 0", got)
	}
}
