package plan

import (
	"log/slog"
	"strings"

	"github.com/hpungsan/daychain/internal/clock"
)

// Options carries the settings the state machine consults.
type Options struct {
	Resolver clock.Resolver
	// SuffixMode is "numeric" or "half".
	SuffixMode        string
	AutoDoneOnStop    bool
	AutoStartNext     bool
	AutoEstimateLearn bool
}

// Machine applies lifecycle operations to a snapshot. A failed method may
// leave the snapshot partly changed; callers discard it instead of saving.
type Machine struct {
	snap *Snapshot
	opts Options
	log  *slog.Logger
}

// NewMachine wraps snap. A nil logger discards output.
func NewMachine(snap *Snapshot, opts Options, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	snap.ensureMaps()
	return &Machine{snap: snap, opts: opts, log: log}
}

// Snapshot returns the store the machine mutates.
func (m *Machine) Snapshot() *Snapshot {
	return m.snap
}

// NormalizeTags trims, collapses inner whitespace and drops empty or duplicate tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
