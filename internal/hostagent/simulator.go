// ABOUTME: Simulated project creator standing in for the editing application.
// ABOUTME: Creates the destination folder for real, fakes the host scripting calls.

package hostagent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/framegate/framegate/internal/protocol"
)

// SimulatedCreator implements ProjectCreator without a real editing
// application behind it. The destination folder is created for real; the
// project file and sequence are only reported, never written. Used by
// cmd/fake-panel and the end-to-end tests.
type SimulatedCreator struct {
	// DefaultPreset is the fallback preset used when the named preset fails.
	DefaultPreset string

	// FailPreset names a preset whose load is simulated to fail, exercising
	// the fallback path. Empty disables the simulation.
	FailPreset string

	// FailAll makes every creation report an error, exercising the
	// status:"error" reply path.
	FailAll bool

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// CreateProject builds a filesystem-safe, timestamp-suffixed project name,
// creates the destination folder, and reports the would-be project layout.
func (s *SimulatedCreator) CreateProject(_ context.Context, data protocol.ProjectData) (*ProjectOutcome, error) {
	if s.FailAll {
		return nil, errors.New("host application rejected the command")
	}

	name := SafeProjectName(data.ProjectName, s.now())

	dir := data.SavePath
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "framegate-inbox")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating save folder: %w", err)
	}

	preset := data.PresetName
	if preset == "" || preset == s.FailPreset {
		// Named preset failed to load; the sequence falls back to the
		// default preset.
		preset = s.DefaultPreset
	}

	sequence := data.SequenceName
	if sequence == "" {
		sequence = "Sequence 01"
	}

	return &ProjectOutcome{
		ProjectName:  name,
		ProjectPath:  filepath.Join(dir, name+".prproj"),
		SequenceName: sequence,
		PresetUsed:   preset,
	}, nil
}

func (s *SimulatedCreator) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SafeProjectName appends a timestamp suffix and replaces characters that are
// not filesystem safe. An empty base falls back to "Untitled Project".
func SafeProjectName(base string, now time.Time) string {
	if base == "" {
		base = "Untitled Project"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return strings.TrimSpace(b.String()) + now.Format("_2006-01-02_15-04-05")
}
