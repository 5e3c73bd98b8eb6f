package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeLog writes content to a file in dir and returns its path.
func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	return path
}

// TestNewParseCmd tests the parse command creation.
func TestNewParseCmd(t *testing.T) {
	t.Parallel()

	cmd := NewParseCmd()
	for _, name := range []string{"output-dir", "concurrency", "overwrite", "lenient-version", "no-db", "format", "report-file", "config"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if cmd.Flags().Lookup("base-url") != nil {
		t.Error("parse must not have network flags")
	}
}

// TestRunParseCmd tests offline extraction.
func TestRunParseCmd(t *testing.T) {
	t.Parallel()

	t.Run("extracts from local files in order", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "")
		logDir := t.TempDir()
		first := writeLog(t, logDir, "first.log", testLog(
			"radosgw-admin zonegroup get", "{'name': 'default', 'is_master': 'true'}",
		))
		second := writeLog(t, logDir, "second.log", testLog(
			"radosgw-admin zonegroup get", "{'name': 'ignored'}",
			"radosgw-admin user info --uid=test", "{'user_id': 'test', 'suspended': False}",
		))

		output, err := execute(t, append([]string{"parse", first, second}, env.args()...)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "zonegroup") {
			t.Errorf("expected category in summary, got %q", output)
		}

		zonegroup := readCategory(t, env.outDir, "zonegroup")
		if len(zonegroup.Outputs) != 1 || !strings.Contains(string(zonegroup.Outputs[0].Output), `"default"`) {
			t.Errorf("expected first file to win, got %+v", zonegroup.Outputs)
		}

		user := readCategory(t, env.outDir, "user")
		if len(user.Outputs) != 1 || string(user.Outputs[0].Output) != `{"user_id":"test","suspended":false}` {
			t.Errorf("unexpected user outputs %+v", user.Outputs)
		}
		if user.Outputs[0].Command != "radosgw-admin user info --uid=test" {
			t.Errorf("unexpected command %q", user.Outputs[0].Command)
		}
	})

	t.Run("missing file is reported, not fatal", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "")
		output, err := execute(t, append([]string{"parse", filepath.Join(t.TempDir(), "nope.log"), "--no-db"}, env.args()...)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "nope.log") {
			t.Errorf("expected failed file in summary, got %q", output)
		}
	})

	t.Run("lenient version keeps commands without a version line", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "")
		path := writeLog(t, t.TempDir(), "short.log",
			"2024-09-10 10:00:00,000 - cephci - INFO - Execute cephadm shell -- radosgw-admin period get\n"+
				"{'epoch': 1}\n")

		if _, err := execute(t, append([]string{"parse", path, "--no-db"}, env.args()...)...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(env.outDir, "period_outputs.json")); !os.IsNotExist(err) {
			t.Fatalf("expected no period file without --lenient-version, got %v", err)
		}

		if _, err := execute(t, append([]string{"parse", path, "--no-db", "--lenient-version"}, env.args()...)...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		period := readCategory(t, env.outDir, "period")
		if len(period.Outputs) != 1 {
			t.Errorf("expected 1 period output, got %d", len(period.Outputs))
		}
	})

	t.Run("requires at least one file", func(t *testing.T) {
		t.Parallel()

		if _, err := execute(t, "parse"); err == nil {
			t.Error("expected error without arguments")
		}
	})
}
