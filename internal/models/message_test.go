package models

import (
	"sort"
	"testing"
)

func TestStatusAdvances(t *testing.T) {
	cases := []struct {
		current, next string
		want          bool
	}{
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusRead, true},
		{StatusDelivered, StatusRead, true},
		{StatusDelivered, StatusSent, false},
		{StatusRead, StatusDelivered, false},
		{StatusRead, StatusRead, false},
		{StatusSent, StatusSent, false},
		{"bogus", StatusRead, false},
		{StatusSent, "bogus", false},
	}

	for _, tc := range cases {
		if got := StatusAdvances(tc.current, tc.next); got != tc.want {
			t.Errorf("StatusAdvances(%q, %q) = %v, want %v", tc.current, tc.next, got, tc.want)
		}
	}
}

func TestStatusesBelow(t *testing.T) {
	below := StatusesBelow(StatusRead)
	sort.Strings(below)
	if len(below) != 2 || below[0] != StatusDelivered || below[1] != StatusSent {
		t.Fatalf("StatusesBelow(read) = %v", below)
	}

	if got := StatusesBelow(StatusSent); len(got) != 0 {
		t.Fatalf("StatusesBelow(sent) = %v, want empty", got)
	}

	if got := StatusesBelow("bogus"); got != nil {
		t.Fatalf("StatusesBelow(bogus) = %v, want nil", got)
	}
}
