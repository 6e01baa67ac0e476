// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/object"

	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/eventlog"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/rebaseplan"
	"github.com/antgroup/zeta-branchless/modules/zetabl/snapshot"
)

// sequencerStateFile is the on-disk bookkeeping file name, styled after
// the teacher's own REBASE_MD ("REBASE-MD", pkg/zeta/worktree_rebase.go)
// but scoped to this package's plan/step model instead of the teacher's
// single-commit-at-a-time fields.
const sequencerStateFile = "BRANCHLESS-SEQUENCER-MD"

// SequencerState is this package's analogue of the teacher's RebaseMD:
// a TOML-encoded record of exactly where a stopped-for-conflicts plan
// execution left off, so it can be resumed (or aborted) by a second
// invocation after the user resolves the conflict in their working copy.
type SequencerState struct {
	Onto      plumbing.Hash          `toml:"ONTO"`
	Tip       plumbing.Hash          `toml:"TIP"`
	StepIndex int                    `toml:"STEP_INDEX"`
	Labels    map[string]string      `toml:"LABELS"`
	HEAD      plumbing.ReferenceName `toml:"HEAD"`
}

// WorktreeDriver is the subset of real working-copy operations the
// on-disk executor needs; production callers implement it over
// pkg/zeta.Worktree (checkoutConflicts, ReferenceUpdate and friends),
// exercising the teacher's real conflict-marker checkout instead of this
// package reimplementing it, consistent with spec.md §1's "building a
// replacement object database/working copy" non-goal.
type WorktreeDriver interface {
	// CheckoutCommit updates the working copy and index to match commit.
	CheckoutCommit(ctx context.Context, commit oid.OID) error
	// CheckoutConflicted stops mid-cherry-pick and writes conflict
	// markers for the user to resolve by hand, mirroring
	// checkoutRebaseConflicts.
	CheckoutConflicted(ctx context.Context, onto, last oid.OID, mergeTree plumbing.Hash) error
	// CommitResolution builds the commit that finishes the step
	// CheckoutConflicted stopped at, reading the resolved tree and commit
	// metadata (author, message, parent) out of the real index and
	// MERGE_MSG the way `pkg/zeta/worktree_rebase.go`'s `continueRebase`
	// does, rather than this package tracking that state itself.
	CommitResolution(ctx context.Context) (oid.OID, error)
}

// WorkingCopyStatus is the tree-per-stage materialization of the working
// copy's index pkg/zetabl/vcs.Adapter.GetStatus produces, reduced to the
// fields snapshot.Input needs. It is expressed locally rather than as a
// direct alias so this package keeps no import-time dependency on
// pkg/zetabl/vcs (mirroring the VCS interface above).
type WorkingCopyStatus struct {
	Head      oid.MaybeZero
	IndexTree plumbing.Hash
	Stage1    plumbing.Hash
	Stage2    plumbing.Hash
	Stage3    plumbing.Hash
}

// WorkingCopyReader reads the current working copy's index/HEAD state, so
// DiskExecutor can capture it as a snapshot commit immediately before a
// checkout that would otherwise discard it.
type WorkingCopyReader interface {
	GetWorkingCopyStatus(ctx context.Context) (*WorkingCopyStatus, error)
}

// snapshotWriter is the subset of pkg/zetabl/vcs.Adapter snapshot.Create
// needs, named separately from VCS above so EnableWorkingCopySnapshots
// can accept any type satisfying it structurally.
type snapshotWriter interface {
	CreateCommit(ctx context.Context, treeHash plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error)
}

// DiskExecutor drives a Plan against a real working copy (C8), stopping
// at the first conflicted Pick exactly the way the teacher's
// `rebaseInternal` halts and persists `RebaseMD` (pkg/zeta/worktree_rebase.go)
// for the user to continue or abort later.
type DiskExecutor struct {
	mem    *MemoryExecutor
	driver WorktreeDriver
	root   string

	snapshotVCS    snapshotWriter
	snapshotReader WorkingCopyReader
	log            *eventlog.Log
	committer      object.Signature
}

// NewDiskExecutor builds a DiskExecutor that delegates conflict-free
// steps to mem (so merge-free cherry-picks still benefit from the
// in-memory fast path) and falls back to driver only for steps
// MemoryExecutor could not resolve (merge commits, conflicts).
func NewDiskExecutor(mem *MemoryExecutor, driver WorktreeDriver, root string) *DiskExecutor {
	return &DiskExecutor{mem: mem, driver: driver, root: root}
}

// EnableWorkingCopySnapshots turns on the pre-checkout snapshot spec.md
// §4.5/§8 requires before any checkout that would overwrite uncommitted
// work: once set, Run and Resume capture reader's current status as a
// snapshot commit (via vcs and, if log is non-nil, a WorkingCopySnapshot
// event) immediately before handing a conflicted step to driver. It is a
// setter rather than a constructor parameter so existing callers that
// construct a DiskExecutor without a repository-backed reader (e.g. tests
// driving the sequencer state machine in isolation) are unaffected.
func (d *DiskExecutor) EnableWorkingCopySnapshots(vcs snapshotWriter, reader WorkingCopyReader, log *eventlog.Log, committer object.Signature) {
	d.snapshotVCS = vcs
	d.snapshotReader = reader
	d.log = log
	d.committer = committer
}

// snapshotBeforeCheckout captures the working copy's current state as a
// snapshot commit, a no-op when EnableWorkingCopySnapshots was never
// called (the working-copy-backed caller is the only one able to supply
// a WorkingCopyReader; tests exercising the sequencer state machine in
// isolation have nothing to snapshot).
func (d *DiskExecutor) snapshotBeforeCheckout(ctx context.Context) error {
	if d.snapshotReader == nil {
		return nil
	}
	status, err := d.snapshotReader.GetWorkingCopyStatus(ctx)
	if err != nil {
		return fmt.Errorf("executor: read working copy status for snapshot: %w", err)
	}
	in := snapshot.Input{
		Head:        status.Head,
		IndexTree:   status.IndexTree,
		Stage1:      snapshot.Stage{Tree: status.Stage1},
		Stage2:      snapshot.Stage{Tree: status.Stage2},
		Stage3:      snapshot.Stage{Tree: status.Stage3},
		Committer:   d.committer,
		Description: "pre-checkout snapshot",
	}
	now := time.Now()
	snapshotOID, err := snapshot.Create(ctx, d.snapshotVCS, now, in)
	if err != nil {
		return fmt.Errorf("executor: snapshot working copy: %w", err)
	}
	if d.log == nil {
		return nil
	}
	txID, err := d.log.MakeTransactionID(now, "pre-checkout snapshot")
	if err != nil {
		return fmt.Errorf("executor: allocate snapshot transaction: %w", err)
	}
	ev := event.NewWorkingCopySnapshot(status.Head, snapshotOID, "")
	if err := d.log.AddEvents(txID, now, []event.Event{ev}); err != nil {
		return fmt.Errorf("executor: record snapshot event: %w", err)
	}
	return nil
}

func (d *DiskExecutor) statePath() string { return filepath.Join(d.root, sequencerStateFile) }

// Run interprets plan starting from initialTip, running to completion
// entirely via the in-memory path when there are no conflicts. On the
// first conflict, it persists a SequencerState, checks out the conflict
// markers via driver, and returns ErrStoppedForConflict; a subsequent
// call to Resume continues from the persisted state once the user has
// resolved the conflict and recorded the merge result's tree.
func (d *DiskExecutor) Run(ctx context.Context, plan *rebaseplan.Plan, initialTip oid.OID) (*Result, error) {
	result, err := d.mem.Run(ctx, plan, initialTip)
	if err != nil {
		return nil, err
	}
	if len(result.Conflicts) == 0 {
		return result, nil
	}
	first := result.Conflicts[0]
	state := &SequencerState{
		Onto:      initialTip.Hash(),
		Tip:       result.Tip.Hash(),
		StepIndex: indexOfConflictedStep(plan, first.OID),
	}
	if err := d.writeState(state); err != nil {
		return nil, err
	}
	if err := d.snapshotBeforeCheckout(ctx); err != nil {
		return nil, err
	}
	if err := d.driver.CheckoutConflicted(ctx, initialTip, result.Tip, first.OID.Hash()); err != nil {
		return nil, fmt.Errorf("executor: checkout conflicted step: %w", err)
	}
	return nil, &ErrStoppedForConflict{State: state, Conflicts: result.Conflicts}
}

// ErrStoppedForConflict is returned when DiskExecutor halts mid-plan for
// the user to resolve a conflict by hand, analogous to the teacher's own
// "stop for conflicts, write REBASE-MD" flow.
type ErrStoppedForConflict struct {
	State     *SequencerState
	Conflicts []ConflictedStep
}

func (e *ErrStoppedForConflict) Error() string {
	return fmt.Sprintf("executor: stopped for %d conflict(s) at step %d", len(e.Conflicts), e.State.StepIndex)
}

func (d *DiskExecutor) writeState(state *SequencerState) error {
	fd, err := os.Create(d.statePath())
	if err != nil {
		return fmt.Errorf("executor: create %s: %w", sequencerStateFile, err)
	}
	defer fd.Close()
	if err := toml.NewEncoder(fd).Encode(state); err != nil {
		return fmt.Errorf("executor: encode sequencer state: %w", err)
	}
	return nil
}

// ReadState loads a previously persisted SequencerState, or reports
// os.IsNotExist if no execution is currently stopped.
func (d *DiskExecutor) ReadState() (*SequencerState, error) {
	var state SequencerState
	if _, err := toml.DecodeFile(d.statePath(), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Resume continues plan after the user has resolved the conflict a prior
// Run or Resume call stopped at: it asks the driver to finish that step's
// commit from the resolved working copy, then re-enters the in-memory
// path for whatever steps remain, stopping again (and re-persisting
// state) on the next conflict if any.
func (d *DiskExecutor) Resume(ctx context.Context, plan *rebaseplan.Plan) (*Result, error) {
	state, err := d.ReadState()
	if err != nil {
		return nil, fmt.Errorf("executor: read sequencer state: %w", err)
	}
	resumed, err := d.driver.CommitResolution(ctx)
	if err != nil {
		return nil, fmt.Errorf("executor: commit conflict resolution: %w", err)
	}
	remaining := &rebaseplan.Plan{Steps: plan.Steps[state.StepIndex+1:]}
	result, err := d.mem.Run(ctx, remaining, resumed)
	if err != nil {
		return nil, err
	}
	if len(result.Conflicts) > 0 {
		first := result.Conflicts[0]
		next := &SequencerState{
			Onto:      state.Onto,
			Tip:       result.Tip.Hash(),
			StepIndex: state.StepIndex + 1 + indexOfConflictedStep(remaining, first.OID),
		}
		if err := d.writeState(next); err != nil {
			return nil, err
		}
		if err := d.snapshotBeforeCheckout(ctx); err != nil {
			return nil, err
		}
		if err := d.driver.CheckoutConflicted(ctx, initialTipFromHash(state.Onto), result.Tip, first.OID.Hash()); err != nil {
			return nil, fmt.Errorf("executor: checkout conflicted step: %w", err)
		}
		return nil, &ErrStoppedForConflict{State: next, Conflicts: result.Conflicts}
	}
	if err := d.Abort(); err != nil {
		return nil, err
	}
	return result, nil
}

func initialTipFromHash(h plumbing.Hash) oid.OID {
	o, err := oid.New(h)
	if err != nil {
		return oid.OID{}
	}
	return o
}

// Abort discards the persisted sequencer state without resuming.
func (d *DiskExecutor) Abort() error {
	if err := os.Remove(d.statePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("executor: remove sequencer state: %w", err)
	}
	return nil
}

func indexOfConflictedStep(plan *rebaseplan.Plan, conflicted oid.OID) int {
	for i, s := range plan.Steps {
		if s.Kind == rebaseplan.StepPick && s.OID.Equal(conflicted) {
			return i
		}
	}
	return -1
}
