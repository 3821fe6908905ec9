package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CaptShanks/sqitchprism/internal/parser"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestSanitizeProjectName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"flipr", "flipr"},
		{"my_project", "my-project"},
		{"a b/c.d", "a-b-c-d"},
		{"graph", "graph-proj"},
		{"", "unknown"},
		{strings.Repeat("x", 40), strings.Repeat("x", 30)},
	}
	for _, tt := range tests {
		if got := sanitizeProjectName(tt.in); got != tt.want {
			t.Errorf("sanitizeProjectName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFilenameRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 14, 10, 30, 0, 0, time.Local)
	name := GenerateFilename("flipr", CommandGraph, now)

	if name != "2025-01-14_10-30-00_flipr_graph.plan" {
		t.Fatalf("unexpected filename %q", name)
	}

	entry, err := parseFilename(name)
	if err != nil {
		t.Fatalf("parseFilename failed: %v", err)
	}
	if !entry.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", entry.Timestamp, now)
	}
	if entry.Project != "flipr" || entry.Command != CommandGraph {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestParseFilenameRejectsForeignFiles(t *testing.T) {
	for _, name := range []string{
		"sqitch.plan",
		"2025-01-14_10-30-00_flipr_apply.plan",
		"not-a-date_10-30-00_flipr_graph.plan",
		"2025-01-14_10-30-00_graph.plan",
	} {
		if _, err := parseFilename(name); err == nil {
			t.Errorf("parseFilename(%q) should fail", name)
		}
	}
}

func TestSnapshotParsesLikeSource(t *testing.T) {
	withHome(t)

	source := "%project=flipr\nappschema # schema\nusers [appschema] # users\n"
	path, err := CreateHistoryFile("flipr", CommandView, "/tmp/sqitch.plan", source)
	if err != nil {
		t.Fatalf("CreateHistoryFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}

	want, _ := parser.Parse(source)
	got, _ := parser.Parse(string(data))

	if len(got.Changes) != len(want.Changes) {
		t.Fatalf("snapshot has %d changes, source has %d", len(got.Changes), len(want.Changes))
	}
	for i := range want.Changes {
		if got.Changes[i].Name != want.Changes[i].Name ||
			got.Changes[i].Description != want.Changes[i].Description ||
			strings.Join(got.Changes[i].Requires, ",") != strings.Join(want.Changes[i].Requires, ",") {
			t.Errorf("change %d differs: got %+v want %+v", i, got.Changes[i], want.Changes[i])
		}
	}
	if got.Project() != "flipr" {
		t.Errorf("snapshot project = %q, want flipr", got.Project())
	}
}

func TestCreateHistoryFileRejectsUnknownCommand(t *testing.T) {
	withHome(t)
	if _, err := CreateHistoryFile("p", "apply", "", "a\n"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestListEntriesAndCleanup(t *testing.T) {
	withHome(t)

	dir, err := EnsureHistoryDir()
	if err != nil {
		t.Fatalf("EnsureHistoryDir failed: %v", err)
	}

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	commands := []string{CommandView, CommandGraph, CommandGraph, CommandExport}
	for i, cmd := range commands {
		name := GenerateFilename("flipr", cmd, base.Add(time.Duration(i)*time.Minute))
		header := CreateHistoryHeader(cmd, "plans/sqitch.plan", base)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(header+"a\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// foreign files are ignored
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	entries, err := ListEntries("")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Command != CommandExport {
		t.Errorf("newest entry should be export, got %s", entries[0].Command)
	}
	if entries[0].Source != "plans/sqitch.plan" {
		t.Errorf("source = %q", entries[0].Source)
	}

	graphs, _ := ListEntries(CommandGraph)
	if len(graphs) != 2 {
		t.Errorf("expected 2 graph entries, got %d", len(graphs))
	}

	deleted, err := CleanupOldFiles(2)
	if err != nil {
		t.Fatalf("CleanupOldFiles failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	remaining, _ := ListEntries("")
	if len(remaining) != 2 || remaining[1].Command != CommandGraph {
		t.Errorf("unexpected remaining entries: %+v", remaining)
	}
}

func TestListEntriesMissingDir(t *testing.T) {
	withHome(t)
	entries, err := ListEntries("")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestTruncatePath(t *testing.T) {
	if got := TruncatePath("short", 40); got != "short" {
		t.Errorf("got %q", got)
	}
	got := TruncatePath("/very/long/path/to/some/project/sqitch.plan", 20)
	if len(got) != 20 || !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "sqitch.plan") {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestListEntriesLongSource(t *testing.T) {
	withHome(t)

	source := "/" + strings.Repeat("deep/", 500) + "sqitch.plan"
	if _, err := CreateHistoryFile("flipr", CommandView, source, "appschema # schema\n"); err != nil {
		t.Fatalf("CreateHistoryFile failed: %v", err)
	}

	entries, err := ListEntries("")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Source != source {
		t.Errorf("Source has %d bytes, want %d", len(entries[0].Source), len(source))
	}
}
