package transaction

import (
	"time"

	"github.com/ajitpratap0/scrub/pkg/redact"
)

// State is a step of the per-file state machine:
//
//	Read -> Scanned -> CleanSkip
//	                -> DirtyBackup -> Rewriting -> Committed
//	                                            -> RolledBack
type State int

const (
	StateRead State = iota
	StateScanned
	StateCleanSkip
	StateDirtyBackup
	StateRewriting
	StateCommitted
	StateRolledBack
)

var stateNames = [...]string{
	StateRead:        "read",
	StateScanned:     "scanned",
	StateCleanSkip:   "clean_skip",
	StateDirtyBackup: "dirty_backup",
	StateRewriting:   "rewriting",
	StateCommitted:   "committed",
	StateRolledBack:  "rolled_back",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Outcome is how a file transaction ended, as reported to the user
type Outcome string

const (
	// OutcomeSkipped means no value matched and nothing was written
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRedacted means the file was rewritten and the backup removed
	OutcomeRedacted Outcome = "redacted"
	// OutcomeWouldRedact is a dry run that found matches
	OutcomeWouldRedact Outcome = "would_redact"
	// OutcomeRolledBack means the rewrite failed and the original was restored
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeFailed means the file could not be processed. When State is
	// before DirtyBackup the original was never touched.
	OutcomeFailed Outcome = "failed"
)

// Result describes one finished file transaction
type Result struct {
	Path    string
	Outcome Outcome
	// State is the last state the transaction reached
	State State
	Stats redact.Stats
	// BackupPath is set while a backup exists on disk after the transaction,
	// which only happens when removing it after a commit failed or when
	// rollback failed.
	BackupPath   string
	BytesWritten int64
	Duration     time.Duration
	Err          error
}

// OK reports whether the transaction ended without error
func (r Result) OK() bool { return r.Err == nil }
