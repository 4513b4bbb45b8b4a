// Package sink appends self-describing job result records to the shared
// output target. Appends are record-atomic: two independent worker processes
// writing concurrently never interleave within a record. Ordering across
// processes is unspecified; every record carries its own identity so
// consumers can sort and group after the fact.
//
// Two backends exist, chosen by the target path's extension: a SQLite
// insert-only table for .db/.sqlite targets, and a JSON-lines file (opened
// with O_APPEND, one Write per record) for everything else.
package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/katiepod/DEXICA/internal/executor"
	"github.com/katiepod/DEXICA/internal/grid"
)

// ErrEmptyTarget is returned when no output target is configured.
var ErrEmptyTarget = errors.New("sink: output target is empty")

// Record is the result-record schema written to the shared sink, one per
// executed job. The significance fields are present iff status is "ok"; the
// failure fields iff status is "failed".
type Record struct {
	BatchID    string           `json:"batchId"`
	JobID      int              `json:"jobId"`
	Compendium string           `json:"compendium"`
	Annmat     string           `json:"annmat"`
	Params     grid.Combination `json:"params"`
	Seed       int64            `json:"seed"`
	Status     string           `json:"status"`

	FailedStage string `json:"failedStage,omitempty"`
	Reason      string `json:"reason,omitempty"`

	AnnsSignificant *int  `json:"annsSignificant,omitempty"`
	ModsSignificant *int  `json:"modsSignificant,omitempty"`
	ModuleCount     *int  `json:"moduleCount,omitempty"`
	ModuleSizes     []int `json:"moduleSizes,omitempty"`
}

// FromResult builds the sink record for one executed job.
func FromResult(batchID string, res executor.Result) Record {
	rec := Record{
		BatchID:    batchID,
		JobID:      res.JobID,
		Compendium: res.Compendium,
		Annmat:     res.Annmat,
		Params:     res.Params,
		Seed:       res.Seed,
		Status:     res.Status,
	}
	if res.Status == executor.StatusFailed {
		rec.FailedStage = string(res.FailedStage)
		rec.Reason = res.Reason
		return rec
	}
	anns, mods, count := res.AnnsSignificant, res.ModsSignificant, res.ModuleCount
	rec.AnnsSignificant = &anns
	rec.ModsSignificant = &mods
	rec.ModuleCount = &count
	rec.ModuleSizes = res.ModuleSizes
	return rec
}

// Sink appends records to a shared target.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Open returns the sink backend for a target path.
func Open(target string) (Sink, error) {
	if target == "" {
		return nil, ErrEmptyTarget
	}
	switch filepath.Ext(target) {
	case ".db", ".sqlite":
		return openSQLite(target)
	default:
		return openFile(target)
	}
}

// Append is the one-shot convenience used by workers: open, append one
// record, close.
func Append(ctx context.Context, target string, rec Record) error {
	s, err := Open(target)
	if err != nil {
		return err
	}
	if err := s.Append(ctx, rec); err != nil {
		s.Close()
		return fmt.Errorf("failed to append result record: %w", err)
	}
	return s.Close()
}
