package domain

import "testing"

func TestUTMMergeBodyWins(t *testing.T) {
	body := UTM{Source: "facebook", Campaign: "spring"}
	query := UTM{Source: "google", Medium: "cpc", Campaign: "winter"}

	got := body.Merge(query)
	want := UTM{Source: "facebook", Medium: "cpc", Campaign: "spring"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
