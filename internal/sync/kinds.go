// Package sync drives the incremental and full synchronization passes that
// denormalize CI jobs out of PostgreSQL into the document store.
package sync

import "fmt"

// Kind identifies one synchronizer.
type Kind string

const (
	KindJobs      Kind = "jobs"
	KindPipelines Kind = "pipelines"
	KindJunit     Kind = "junit"
	KindDuration  Kind = "duration_cumulated"
	KindCoverage  Kind = "components_coverage"
)

// Mode selects between an incremental pass and a full rebuild.
type Mode string

const (
	ModePartial Mode = "partial"
	ModeFull    Mode = "full"
)

// ParseKind validates a sync kind coming from the trigger surface.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindJobs, KindPipelines, KindJunit, KindDuration, KindCoverage:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown sync kind %q", s)
}

// ParseMode validates a sync mode coming from the trigger surface.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePartial, ModeFull:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown sync type %q", s)
}
