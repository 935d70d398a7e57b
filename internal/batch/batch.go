package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Job is one session to generate
type Job struct {
	SessionID string // Empty means a new session is created
	PDF       string // Input files to import; empty for existing sessions
	Audio     string
}

// NeedsImport reports whether the job brings its own input files
func (j Job) NeedsImport() bool {
	return j.PDF != ""
}

// ReadBatchFile reads generation jobs from a file, one per line.
// Supports formats:
// - Existing session: "lesson-03"
// - Import into a named session: "lesson-03 = lesson3.pdf, lesson3.mp3"
// - Import into a new session: "= lesson3.pdf, lesson3.mp3"
//
// Blank lines and lines starting with '#' are skipped. Relative input
// paths are resolved against the directory of the batch file.
func ReadBatchFile(filename string) ([]Job, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	baseDir := filepath.Dir(filename)
	var jobs []Job

	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.Contains(line, "=") {
			jobs = append(jobs, Job{SessionID: line})
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		id := strings.TrimSpace(parts[0])
		files := strings.Split(parts[1], ",")
		if len(files) != 2 {
			return nil, fmt.Errorf("line %d: expected \"pdf, audio\" after '='", i+1)
		}

		pdf := strings.TrimSpace(files[0])
		audio := strings.TrimSpace(files[1])
		if pdf == "" || audio == "" {
			return nil, fmt.Errorf("line %d: empty input path", i+1)
		}

		jobs = append(jobs, Job{
			SessionID: id,
			PDF:       resolve(baseDir, pdf),
			Audio:     resolve(baseDir, audio),
		})
	}

	return jobs, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
