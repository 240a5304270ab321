package models

import (
	"testing"
	"time"
)

func TestCanAnswer(t *testing.T) {
	for status, want := range map[string]bool{
		CallInitiated: true,
		CallRinging:   true,
		CallAnswered:  false,
		CallEnded:     false,
		CallMissed:    false,
		CallDeclined:  false,
	} {
		if got := CanAnswer(status); got != want {
			t.Errorf("CanAnswer(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestIsTerminalCallStatus(t *testing.T) {
	for status, want := range map[string]bool{
		CallEnded:     true,
		CallMissed:    true,
		CallDeclined:  true,
		CallInitiated: false,
		CallRinging:   false,
		CallAnswered:  false,
	} {
		if got := IsTerminalCallStatus(status); got != want {
			t.Errorf("IsTerminalCallStatus(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestCallDuration(t *testing.T) {
	end := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)

	if got := CallDuration(nil, end); got != 0 {
		t.Fatalf("unanswered call duration = %d, want 0", got)
	}

	answered := end.Add(-30 * time.Second)
	if got := CallDuration(&answered, end); got != 30 {
		t.Fatalf("duration = %d, want 30", got)
	}

	justNow := end.Add(-500 * time.Millisecond)
	if got := CallDuration(&justNow, end); got != 0 {
		t.Fatalf("sub-second call duration = %d, want 0", got)
	}
}
