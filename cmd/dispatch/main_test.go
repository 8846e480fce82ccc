package main

import (
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-welcome-only", "-now", "2026-03-10T12:00:00Z"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !opts.welcomeOnly || opts.preview || opts.enqueue {
		t.Fatalf("unexpected options %+v", opts)
	}
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if opts.refTime == nil || !opts.refTime.Equal(want) {
		t.Fatalf("expected reference time %s, got %v", want, opts.refTime)
	}

	opts, err = parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags without args: %v", err)
	}
	if opts.refTime != nil {
		t.Fatal("expected no reference time by default")
	}
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"bad now":              {"-now", "yesterday"},
		"welcome with preview": {"-welcome-only", "-preview"},
		"welcome with enqueue": {"-welcome-only", "-enqueue"},
		"preview with enqueue": {"-preview", "-enqueue"},
		"unknown flag":         {"-everything"},
	}
	for name, args := range cases {
		if _, err := parseFlags(args); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRunReturnsUsageCodeOnBadFlags(t *testing.T) {
	if code := run([]string{"-now", "yesterday"}); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}
