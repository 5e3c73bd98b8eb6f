package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

// quietParser returns a parser that discards its log output.
func quietParser(opts ...Option) *Parser {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewParser(opts...)
}

// TestParserScenario tests the canonical single-command log.
func TestParserScenario(t *testing.T) {
	t.Parallel()

	lines := []string{
		"2024-09-10 10:00:00,000 - cephci - INFO - starting test",
		"2024-09-10 10:00:00,010 - cephci - INFO - setting up cluster",
		"2024-09-10 10:00:00,020 - cephci - INFO - cluster ready",
		"2024-09-10 10:00:00,030 - cephci - INFO - running rgw suite",
		"2024-09-10 10:00:00,040 - cephci - INFO - connecting to node",
		marker("realm list"),
		"{'realms': ['default']}",
		testVersionLine,
		"2024-09-10 10:00:01,000 - cephci - INFO - done",
	}

	records, stats := quietParser().Parse("test.log", lines, NewCommandSet())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Command != "radosgw-admin realm list" {
		t.Errorf("unexpected command %q", r.Command)
	}
	if string(r.Output) != `{"realms":["default"]}` {
		t.Errorf("unexpected output %s", r.Output)
	}
	if r.CephVersion != "19.2.0-12" {
		t.Errorf("unexpected version %q", r.CephVersion)
	}
	if r.Line != 5 {
		t.Errorf("expected marker line 5, got %d", r.Line)
	}
	if r.Source != "test.log" {
		t.Errorf("unexpected source %q", r.Source)
	}
	if stats.Markers != 1 || stats.Records != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestParserPairing tests that each command gets its own JSON block.
func TestParserPairing(t *testing.T) {
	t.Parallel()

	lines := []string{
		marker("realm list"),
		"cephadm shell starting",
		testVersionLine,
		"{'realms': ['default']}",
		marker("zonegroup get"),
		"cephadm shell starting",
		testVersionLine,
		"{",
		"    'name': 'default',",
		"    'is_master': True,",
		"    'zones': [{'id': 'z1'}]",
		"}",
	}

	records, stats := quietParser().Parse("pair.log", lines, NewCommandSet())
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Command != "radosgw-admin realm list" {
		t.Errorf("unexpected first command %q", records[0].Command)
	}
	if string(records[0].Output) != `{"realms":["default"]}` {
		t.Errorf("unexpected first output %s", records[0].Output)
	}
	if records[1].Command != "radosgw-admin zonegroup get" {
		t.Errorf("unexpected second command %q", records[1].Command)
	}
	if string(records[1].Output) != `{"name":"default","is_master":true,"zones":[{"id":"z1"}]}` {
		t.Errorf("unexpected second output %s", records[1].Output)
	}
	if stats.Records != 2 || stats.Markers != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestParserSkips tests the paths that yield no record.
func TestParserSkips(t *testing.T) {
	t.Parallel()

	t.Run("duplicate command yields one record", func(t *testing.T) {
		t.Parallel()

		lines := []string{
			marker("realm list"), "banner", testVersionLine, "{'realms': ['default']}",
			marker("realm list"), "banner", testVersionLine, "{'realms': ['default']}",
		}

		records, stats := quietParser().Parse("dup.log", lines, NewCommandSet())
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if stats.Duplicates != 1 {
			t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
		}
	})

	t.Run("malformed block yields nothing and is not remembered", func(t *testing.T) {
		t.Parallel()

		lines := []string{
			marker("realm list"), "banner", testVersionLine, "{'a': True, 'b':}",
			marker("realm list"), "banner", testVersionLine, "{'realms': []}",
		}

		seen := NewCommandSet()
		records, stats := quietParser().Parse("bad.log", lines, seen)
		if stats.Malformed != 1 {
			t.Errorf("expected 1 malformed block, got %d", stats.Malformed)
		}
		if len(records) != 1 {
			t.Fatalf("expected the second marker to yield, got %d records", len(records))
		}
		if records[0].Line != 4 {
			t.Errorf("expected record from marker at line 4, got %d", records[0].Line)
		}
	})

	t.Run("marker without JSON before end of file", func(t *testing.T) {
		t.Parallel()

		lines := []string{marker("realm list"), "banner", testVersionLine, "no output"}

		records, stats := quietParser().Parse("nojson.log", lines, NewCommandSet())
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
		if stats.NoJSON != 1 {
			t.Errorf("expected 1 no-JSON marker, got %d", stats.NoJSON)
		}
	})

	t.Run("informational command does not steal the next command's output", func(t *testing.T) {
		t.Parallel()

		lines := []string{
			marker("period update --commit"), "banner", testVersionLine, "committed",
			marker("zone list"), "banner", testVersionLine, "{'zones': ['z1']}",
		}

		records, stats := quietParser().Parse("info.log", lines, NewCommandSet())
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Command != "radosgw-admin zone list" {
			t.Errorf("output attached to wrong command %q", records[0].Command)
		}
		if stats.NoJSON != 1 {
			t.Errorf("expected 1 no-JSON marker, got %d", stats.NoJSON)
		}
	})

	t.Run("unclosed block does not hide later markers", func(t *testing.T) {
		t.Parallel()

		lines := []string{
			marker("realm list"), "banner", testVersionLine, "{'realms': [",
			marker("zone list"), "banner", testVersionLine, "{'zones': ['z1']}",
		}

		records, _ := quietParser().Parse("open.log", lines, NewCommandSet())
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Command != "radosgw-admin zone list" {
			t.Errorf("unexpected command %q", records[0].Command)
		}
	})

	t.Run("short version token skips the marker", func(t *testing.T) {
		t.Parallel()

		lines := []string{marker("realm list"), "banner", "... ... ... ... ... 19.2.0-12.el9cp ...", "{'realms': []}"}

		seen := NewCommandSet()
		records, stats := quietParser().Parse("short.log", lines, seen)
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
		if stats.BadVersion != 1 {
			t.Errorf("expected 1 bad version, got %d", stats.BadVersion)
		}
		if seen.Contains("radosgw-admin realm list") {
			t.Error("skipped command must not be remembered")
		}
	})

	t.Run("missing version line does not crash", func(t *testing.T) {
		t.Parallel()

		lines := []string{"banner", marker("realm list")}

		records, stats := quietParser().Parse("tail.log", lines, NewCommandSet())
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
		if stats.BadVersion != 1 {
			t.Errorf("expected 1 bad version, got %d", stats.BadVersion)
		}
	})
}

// TestParserLenientVersion tests emitting records without a version.
func TestParserLenientVersion(t *testing.T) {
	t.Parallel()

	lines := []string{marker("realm list"), "{'realms': ['default']}", "short"}

	records, stats := quietParser(WithLenientVersion(true)).Parse("lenient.log", lines, NewCommandSet())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].CephVersion != "" {
		t.Errorf("expected empty version, got %q", records[0].CephVersion)
	}
	if stats.BadVersion != 1 {
		t.Errorf("expected 1 bad version, got %d", stats.BadVersion)
	}
}

// TestParserSharedSet tests deduplication across logs in one run.
func TestParserSharedSet(t *testing.T) {
	t.Parallel()

	first := []string{marker("realm list"), "banner", testVersionLine, "{'realms': ['a']}"}
	second := []string{marker("realm list"), "banner", testVersionLine, "{'realms': ['b']}", marker("zone list"), "banner", testVersionLine, "{'zones': []}"}

	p := quietParser()
	seen := NewCommandSet()

	r1, _ := p.Parse("first.log", first, seen)
	r2, stats := p.Parse("second.log", second, seen)

	if len(r1) != 1 {
		t.Fatalf("expected 1 record from first log, got %d", len(r1))
	}
	if len(r2) != 1 || r2[0].Command != "radosgw-admin zone list" {
		t.Fatalf("expected only zone list from second log, got %+v", r2)
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate in second log, got %d", stats.Duplicates)
	}
	if seen.Len() != 2 {
		t.Errorf("expected 2 commands in set, got %d", seen.Len())
	}
}

// TestParserNilSet tests that a nil set still deduplicates within one call.
func TestParserNilSet(t *testing.T) {
	t.Parallel()

	lines := []string{
		marker("realm list"), "banner", testVersionLine, "{'realms': []}",
		marker("realm list"), "banner", testVersionLine, "{'realms': []}",
	}

	records, _ := quietParser().Parse("nil.log", lines, nil)
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

// TestParseReader tests parsing from a reader with CRLF line endings.
func TestParseReader(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		marker("user info --uid=u1"),
		"banner",
		testVersionLine,
		"{",
		"  'user_id': 'u1',",
		"  'suspended': False",
		"}",
		"",
	}, "\r\n")

	records, stats, err := quietParser().ParseReader("crlf.log", strings.NewReader(text), NewCommandSet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d (stats %+v)", len(records), stats)
	}
	if records[0].Command != "radosgw-admin user info --uid=u1" {
		t.Errorf("unexpected command %q", records[0].Command)
	}
	if string(records[0].Output) != `{"user_id":"u1","suspended":false}` {
		t.Errorf("unexpected output %s", records[0].Output)
	}
}

// TestParseLines tests the default-parser shorthand.
func TestParseLines(t *testing.T) {
	t.Parallel()

	lines := []string{
		marker("zone get"),
		"{'name': 'default', 'enabled': True}",
		testVersionLine,
	}

	records, stats := ParseLines(lines, nil)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if string(records[0].Output) != `{"name":"default","enabled":true}` {
		t.Errorf("unexpected output %s", records[0].Output)
	}
	if records[0].Source != "" {
		t.Errorf("expected empty source, got %q", records[0].Source)
	}
	if stats.Records != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
