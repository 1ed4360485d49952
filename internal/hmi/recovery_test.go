package hmi

import (
	"errors"
	"testing"
)

// TestResumer_Match tests that a record matching a mounted file opens a prompt
func TestResumer_Match(t *testing.T) {
	store := &mockRecovery{rec: &RecoveryRecord{Filename: "X.gcode", Offset: 512}}
	r := NewResumer(store, testLogger())

	tk, err := r.Check([]string{"A.gcode", "X.gcode"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if tk == nil {
		t.Fatal("expected a ticket")
	}
	if tk.Record.Offset != 512 || !tk.HighlightYes() || tk.Decision() != DecisionPending {
		t.Errorf("unexpected ticket %+v", tk)
	}
	if store.purges != 0 {
		t.Errorf("expected record kept, got %d purges", store.purges)
	}
}

// TestResumer_NoMatch tests that a stale record is discarded without a prompt
func TestResumer_NoMatch(t *testing.T) {
	store := &mockRecovery{rec: &RecoveryRecord{Filename: "X.gcode"}}
	r := NewResumer(store, testLogger())

	tk, err := r.Check([]string{"A.gcode"})
	if err != nil || tk != nil {
		t.Fatalf("expected nil ticket, got %v, %v", tk, err)
	}
	if store.purges != 1 || store.rec != nil {
		t.Errorf("expected record purged, got purges=%d rec=%v", store.purges, store.rec)
	}
}

// TestResumer_Invalid tests that a corrupt record is purged
func TestResumer_Invalid(t *testing.T) {
	store := &mockRecovery{rec: &RecoveryRecord{Filename: "X.gcode", Offset: -1}}
	r := NewResumer(store, testLogger())

	if tk, _ := r.Check([]string{"X.gcode"}); tk != nil {
		t.Error("expected no ticket for negative offset")
	}
	if store.purges != 1 {
		t.Errorf("expected purge, got %d", store.purges)
	}
}

// TestResumer_Empty tests the common nothing-stored path
func TestResumer_Empty(t *testing.T) {
	store := &mockRecovery{}
	tk, err := NewResumer(store, testLogger()).Check([]string{"X.gcode"})
	if tk != nil || err != nil {
		t.Errorf("expected nothing, got %v, %v", tk, err)
	}
}

// TestResumer_LoadError tests that store errors are surfaced
func TestResumer_LoadError(t *testing.T) {
	store := &mockRecovery{loadErr: errors.New("disk on fire")}
	_, err := NewResumer(store, testLogger()).Check(nil)
	if err == nil {
		t.Error("expected an error")
	}
}

// TestTicket_Input tests the highlight toggle and single commit
func TestTicket_Input(t *testing.T) {
	tk := &Ticket{yes: true}

	if !tk.Input(InputIncrease) || tk.HighlightYes() {
		t.Error("clockwise should highlight No")
	}
	if tk.Input(InputIncrease) {
		t.Error("second clockwise should not change anything")
	}
	if !tk.Input(InputDecrease) || !tk.HighlightYes() {
		t.Error("counter-clockwise should highlight Yes")
	}
	tk.Input(InputIncrease)
	if !tk.Input(InputConfirm) || tk.Decision() != DecisionNo {
		t.Errorf("expected No committed, got %s", tk.Decision())
	}
	if tk.Input(InputDecrease) || tk.Input(InputConfirm) {
		t.Error("committed ticket accepted more input")
	}
}
