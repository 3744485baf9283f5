package application

import (
	"expvar"
)

// SyncOutcome classifies what happened to a synchronizer write.
type SyncOutcome string

const (
	OutcomeApplied SyncOutcome = "applied"
	OutcomeSkipped SyncOutcome = "skipped"
	OutcomeFailed  SyncOutcome = "failed"
)

// SyncResult lets callers log, ignore or escalate a write per their own policy.
type SyncResult struct {
	Outcome SyncOutcome `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
	Err     error       `json:"-"`
}

func Applied() SyncResult { return SyncResult{Outcome: OutcomeApplied} }

func Skipped(reason string) SyncResult {
	return SyncResult{Outcome: OutcomeSkipped, Reason: reason}
}

func Failed(err error) SyncResult {
	return SyncResult{Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
}

func (r SyncResult) IsApplied() bool { return r.Outcome == OutcomeApplied }

// Skip reasons.
const (
	ReasonIdentityMissing = "identity missing"
	ReasonBMIUnavailable  = "bmi unavailable"
	ReasonUnknownActivity = "unknown activity level"
	ReasonSaveInProgress  = "save in progress"
)

// syncStats is published at /debug/vars as "profile_sync".
var syncStats = expvar.NewMap("profile_sync")

func record(op string, r SyncResult) SyncResult {
	syncStats.Add(op+"."+string(r.Outcome), 1)
	return r
}

// SyncStats copies the profile_sync counters, keyed "<op>.<outcome>".
func SyncStats() map[string]int64 {
	out := map[string]int64{}
	syncStats.Do(func(kv expvar.KeyValue) {
		if n, ok := kv.Value.(*expvar.Int); ok {
			out[kv.Key] = n.Value()
		}
	})
	return out
}
