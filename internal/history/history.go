// Package history manages the plan snapshots taken each time a plan is rendered.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/CaptShanks/sqitchprism/internal/config"
)

const (
	// Extension of snapshot files. Snapshots are valid plan files.
	Extension = ".plan"

	// MaxHistoryFiles is the default number of snapshots kept by CleanupOldFiles
	MaxHistoryFiles = config.DefaultMaxHistoryFiles

	CommandView   = "view"
	CommandGraph  = "graph"
	CommandServe  = "serve"
	CommandExport = "export"

	timestampLayout = "2006-01-02_15-04-05"
)

var knownCommands = map[string]bool{
	CommandView:   true,
	CommandGraph:  true,
	CommandServe:  true,
	CommandExport: true,
}

// Entry represents a history file entry
type Entry struct {
	Path      string
	Timestamp time.Time
	Project   string // sqitch project or working directory name
	Command   string // view, graph, serve, export
	Filename  string
	Source    string // original plan path, read from the snapshot header
}

// GetHistoryDir returns the path to the history directory
func GetHistoryDir() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// EnsureHistoryDir creates the history directory if it doesn't exist
func EnsureHistoryDir() (string, error) {
	dir, err := GetHistoryDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}

	return dir, nil
}

// GenerateFilename creates a filename for a history entry
// Format: YYYY-MM-DD_HH-MM-SS_<project>_<command>.plan
func GenerateFilename(project, command string, now time.Time) string {
	if project == "" {
		project = GetWorkingDir()
	}
	return fmt.Sprintf("%s_%s_%s%s",
		now.Format(timestampLayout),
		sanitizeProjectName(project),
		command,
		Extension,
	)
}

// sanitizeProjectName makes a project name safe for filenames.
// Underscores are the field delimiter and must not survive.
func sanitizeProjectName(name string) string {
	replacer := strings.NewReplacer(
		"_", "-",
		" ", "-",
		"/", "-",
		"\\", "-",
		":", "-",
		".", "-",
	)
	name = replacer.Replace(name)

	if len(name) > 30 {
		name = name[:30]
	}
	if name == "" {
		name = "unknown"
	}

	// A project named like a command would be misread by parseFilename
	if knownCommands[name] {
		name = name + "-proj"
	}

	return name
}

// CreateHistoryFile writes a snapshot of planText and returns its path.
// The header is made of % lines so the snapshot parses like its source.
func CreateHistoryFile(project, command, source, planText string) (string, error) {
	if !knownCommands[command] {
		return "", fmt.Errorf("unknown history command: %s", command)
	}

	dir, err := EnsureHistoryDir()
	if err != nil {
		return "", err
	}

	now := time.Now()
	path := filepath.Join(dir, GenerateFilename(project, command, now))
	content := CreateHistoryHeader(command, source, now) + planText

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write history file: %w", err)
	}

	return path, nil
}

// CreateHistoryHeader creates the comment header for a snapshot
func CreateHistoryHeader(command, source string, now time.Time) string {
	if source == "" {
		source = "<stdin>"
	}
	return fmt.Sprintf(`%%-------------------------------------------------------------------------------
%% sqitchprism history snapshot
%% Timestamp:   %s
%% Command:     %s
%% Source:      %s
%% Working Dir: %s
%%-------------------------------------------------------------------------------

`, now.Format("2006-01-02 15:04:05 MST"), command, source, GetWorkingDir())
}

// ListEntries returns all history entries, sorted by timestamp (newest first)
func ListEntries(filterCommand string) ([]Entry, error) {
	dir, err := GetHistoryDir()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []Entry{}, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), Extension) {
			continue
		}

		entry, err := parseFilename(f.Name())
		if err != nil {
			continue // not one of ours
		}

		if filterCommand != "" && entry.Command != filterCommand {
			continue
		}

		entry.Path = filepath.Join(dir, f.Name())
		entry.Filename = f.Name()
		entry.Source = readSource(entry.Path)

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Filename > entries[j].Filename
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// CleanupOldFiles deletes the oldest snapshots beyond max and returns how many were removed
func CleanupOldFiles(max int) (int, error) {
	if max <= 0 {
		max = MaxHistoryFiles
	}

	entries, err := ListEntries("")
	if err != nil {
		return 0, err
	}
	if len(entries) <= max {
		return 0, nil
	}

	deleted := 0
	for _, e := range entries[max:] {
		if err := os.Remove(e.Path); err != nil {
			return deleted, fmt.Errorf("failed to remove %s: %w", e.Filename, err)
		}
		deleted++
	}
	return deleted, nil
}

// parseFilename parses YYYY-MM-DD_HH-MM-SS_<project>_<command>.plan
func parseFilename(filename string) (Entry, error) {
	base := strings.TrimSuffix(filename, Extension)
	parts := strings.Split(base, "_")

	if len(parts) != 4 {
		return Entry{}, fmt.Errorf("invalid filename format")
	}

	timestamp, err := time.ParseInLocation(timestampLayout, parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	if !knownCommands[parts[3]] {
		return Entry{}, fmt.Errorf("unknown command: %s", parts[3])
	}

	return Entry{
		Timestamp: timestamp,
		Project:   parts[2],
		Command:   parts[3],
	}, nil
}

// maxHeaderLine bounds a single snapshot header line
const maxHeaderLine = 1 << 20

// readSource pulls the Source line out of a snapshot header
func readSource(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	// only the leading % lines are header; paths may exceed the default token size
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxHeaderLine)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "%") {
			break
		}
		if v, ok := strings.CutPrefix(line, "% Source:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// FormatEntry formats an entry for display
func FormatEntry(e Entry) string {
	project := e.Project
	if project == "" {
		project = "-"
	}
	if len(project) > 20 {
		project = project[:17] + "..."
	}

	return fmt.Sprintf("%s  %-20s  %-7s",
		e.Timestamp.Format("2006-01-02 15:04:05"),
		project,
		e.Command,
	)
}

// TruncatePath shortens a path to max characters, keeping its tail
func TruncatePath(path string, max int) string {
	if max <= 3 || len(path) <= max {
		return path
	}
	return "..." + path[len(path)-(max-3):]
}

// GetWorkingDir returns the current working directory name for context
func GetWorkingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return filepath.Base(wd)
}
