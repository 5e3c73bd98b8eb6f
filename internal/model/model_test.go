package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestCommandCategory tests category extraction from command strings.
func TestCommandCategory(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		command  string
		expected string
		ok       bool
	}{
		{"radosgw-admin realm list", "realm", true},
		{"radosgw-admin zonegroup get --rgw-zonegroup=us", "zonegroup", true},
		{"radosgw-admin bucket_stats", "bucket_stats", true},
		{"radosgw-admin user info --uid=test", "user", true},
		{"radosgw-admin --help", "", false},
		{"radosgw-admin", "", false},
		{"ceph status", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.command, func(t *testing.T) {
			t.Parallel()

			got, ok := CommandCategory(tc.command)
			if got != tc.expected || ok != tc.ok {
				t.Errorf("got (%q, %v), expected (%q, %v)", got, ok, tc.expected, tc.ok)
			}

			r := OutputRecord{Command: tc.command}
			if cat, _ := r.Category(); cat != tc.expected {
				t.Errorf("Category() = %q, expected %q", cat, tc.expected)
			}
		})
	}
}

// TestOutputRecordJSON tests that output is embedded as raw JSON.
func TestOutputRecordJSON(t *testing.T) {
	t.Parallel()

	r := OutputRecord{
		Command:     "radosgw-admin realm list",
		Output:      json.RawMessage(`{"realms":["default"]}`),
		CephVersion: "19.2.0-12",
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"command":"radosgw-admin realm list","output":{"realms":["default"]},"ceph_version":"19.2.0-12","line":0}`
	if string(data) != expected {
		t.Errorf("got %s, expected %s", data, expected)
	}
}

// TestSplitLines tests line splitting of log bodies.
func TestSplitLines(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{"empty", "", nil},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines kept", "a\n\nb", []string{"a", "", "b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := SplitLines(tc.text)
			if len(got) != len(tc.expected) {
				t.Fatalf("got %q, expected %q", got, tc.expected)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("line %d: got %q, expected %q", i, got[i], tc.expected[i])
				}
			}
		})
	}
}

// TestLogFileComputeHash tests the content fingerprint.
func TestLogFileComputeHash(t *testing.T) {
	t.Parallel()

	a := &LogFile{Raw: []byte("line one\nline two\n")}
	b := &LogFile{Raw: []byte("line one\nline two\n")}
	c := &LogFile{Raw: []byte("line one\n")}
	a.ComputeHash()
	b.ComputeHash()
	c.ComputeHash()

	if len(a.Hash) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a.Hash))
	}
	if a.Hash != b.Hash {
		t.Error("expected equal bodies to hash equally")
	}
	if a.Hash == c.Hash {
		t.Error("expected different bodies to hash differently")
	}
	if a.Size != 18 {
		t.Errorf("expected size 18, got %d", a.Size)
	}
	if len(a.Lines()) != 2 {
		t.Errorf("expected 2 lines, got %d", len(a.Lines()))
	}
}

// TestListing tests listing helpers.
func TestListing(t *testing.T) {
	t.Parallel()

	l := &Listing{
		BaseURL: "http://lab.example/results/",
		Directories: []Directory{
			{URL: "http://lab.example/results/", Logs: []string{"a.log", "b.log"}},
			{URL: "http://lab.example/results/s1/", Depth: 1, Error: "unexpected status: 500"},
			{URL: "http://lab.example/results/s2/", Depth: 1, Logs: []string{"c.log"}},
		},
	}

	urls := l.LogURLs()
	if len(urls) != 3 || urls[0] != "a.log" || urls[2] != "c.log" {
		t.Errorf("unexpected order %v", urls)
	}

	failed := l.FailedDirectories()
	if len(failed) != 1 || failed[0].URL != "http://lab.example/results/s1/" {
		t.Errorf("unexpected failed directories %v", failed)
	}

	var nilListing *Listing
	if nilListing.LogURLs() != nil || nilListing.FailedDirectories() != nil {
		t.Error("expected nil results for nil listing")
	}
}

// TestRunReport tests run report accumulation.
func TestRunReport(t *testing.T) {
	t.Parallel()

	r := NewRunReport("http://lab.example/results/")
	if r.ID == "" {
		t.Error("expected run ID")
	}
	if other := NewRunReport(r.BaseURL); other.ID == r.ID {
		t.Error("expected unique run IDs")
	}
	if r.Duration() != 0 {
		t.Errorf("expected zero duration before finish, got %v", r.Duration())
	}

	r.AddLogResult(LogResult{URL: "a.log", Stats: ExtractStats{Markers: 3, Records: 2, Duplicates: 1}},
		[]OutputRecord{{Command: "radosgw-admin realm list"}, {Command: "radosgw-admin zone get"}})
	r.AddLogResult(LogResult{URL: "b.log", Error: "connection refused"}, nil)
	r.AddLogResult(LogResult{URL: "c.log", Stats: ExtractStats{Markers: 1, Malformed: 1}}, nil)

	if r.Stats.Markers != 4 || r.Stats.Records != 2 || r.Stats.Duplicates != 1 || r.Stats.Malformed != 1 {
		t.Errorf("unexpected stats %+v", r.Stats)
	}
	if len(r.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(r.Records))
	}
	if r.FailedLogs() != 1 {
		t.Errorf("expected 1 failed log, got %d", r.FailedLogs())
	}

	r.Categories["zone"] = 1
	r.Categories["bucket"] = 2
	r.Categories["realm"] = 1
	cats := r.SortedCategories()
	if len(cats) != 3 || cats[0] != "bucket" || cats[2] != "zone" {
		t.Errorf("unexpected category order %v", cats)
	}

	r.FinishedAt = r.StartedAt.Add(1500 * time.Millisecond)
	if r.Duration() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", r.Duration())
	}
}
