package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Storage persists sweep results to the configured output directory,
// one subdirectory per run (keyed by RunReport.RunID).
type Storage struct {
	outputDir string
	logger    *Logger
}

// NewStorage creates a Storage rooted at outputDir, creating it if
// necessary.
func NewStorage(outputDir string, logger *Logger) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("reporting: failed to create output directory: %w", err)
	}
	return &Storage{outputDir: outputDir, logger: logger}, nil
}

// RunDir returns the directory a given run's artifacts are written to.
func (s *Storage) RunDir(runID string) string {
	return filepath.Join(s.outputDir, runID)
}

// WriteInfo writes the per-run "0-info.txt" metadata file: UTC/local
// timestamps, the command line that launched the sweep, and the
// resolved arguments - the non-source-snapshot half of the original
// tool's per-run metadata file (see DESIGN.md for the source-snapshot
// omission).
func (s *Storage) WriteInfo(runID string, args []string, resolved map[string]string) error {
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("reporting: failed to create run directory: %w", err)
	}

	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "run_id: %s\n", runID)
	fmt.Fprintf(&b, "started_utc: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "started_local: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "go_version: %s\n", runtime.Version())
	fmt.Fprintf(&b, "command_line: %s\n", strings.Join(args, " "))
	fmt.Fprintln(&b, "resolved_config:")
	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, resolved[k])
	}

	path := filepath.Join(dir, "0-info.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("reporting: failed to write %s: %w", path, err)
	}
	return nil
}

// SaveReport writes report's full cell set to "<outputDir>/<runID>/results.json".
func (s *Storage) SaveReport(report *RunReport) (string, error) {
	dir := s.RunDir(report.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("reporting: failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reporting: failed to marshal report: %w", err)
	}

	path := filepath.Join(dir, "results.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("reporting: failed to write %s: %w", path, err)
	}

	s.logger.Info("sweep report saved", "path", path, "cells", len(report.Cells))
	return path, nil
}

// LoadReport loads a previously saved RunReport.
func (s *Storage) LoadReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to read %s: %w", path, err)
	}
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("reporting: failed to unmarshal %s: %w", path, err)
	}
	return &report, nil
}

// ListRuns lists every run subdirectory under the output directory,
// newest first.
func (s *Storage) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to read output directory: %w", err)
	}
	var runs []fs_entry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, fs_entry{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].modTime.After(runs[j].modTime) })
	names := make([]string, len(runs))
	for i, r := range runs {
		names[i] = r.name
	}
	return names, nil
}

type fs_entry struct {
	name    string
	modTime time.Time
}

// GetOutputDir returns the root output directory.
func (s *Storage) GetOutputDir() string {
	return s.outputDir
}
