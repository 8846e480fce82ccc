package stages

import (
	"testing"
	"time"
)

func TestFollowupsAscending(t *testing.T) {
	got := Followups()
	want := []Template{TemplateFollowup1, TemplateFollowup2, TemplateFollowup3}
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Template != want[i] {
			t.Fatalf("stage %d: expected %s, got %s", i, want[i], got[i].Template)
		}
		if i > 0 && got[i].Offset <= got[i-1].Offset {
			t.Fatalf("stages not ascending at %d", i)
		}
	}
}

func TestWindowFor(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w := WindowFor(24*time.Hour, now)

	if !w.Start.Equal(time.Date(2026, 3, 9, 11, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", w.Start)
	}
	if !w.End.Equal(time.Date(2026, 3, 9, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", w.End)
	}
}

func TestWindowContainsBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-24 * time.Hour)

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"exact offset", created, true},
		{"lower bound", created.Add(-30 * time.Minute), true},
		{"upper bound", created.Add(30 * time.Minute), true},
		{"just before", created.Add(-30*time.Minute - time.Second), false},
		{"just after", created.Add(30*time.Minute + time.Second), false},
	}

	w := WindowFor(Followup1.Offset, now)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.Contains(tc.t); got != tc.want {
				t.Fatalf("Contains(%s) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

func TestAllStartsWithWelcome(t *testing.T) {
	all := All()
	if all[0] != Welcome || len(all) != 4 {
		t.Fatalf("unexpected stages %v", all)
	}
}
