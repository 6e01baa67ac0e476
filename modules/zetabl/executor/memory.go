// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package executor drives a rebaseplan.Plan to completion: MemoryExecutor
// (C7) interprets it entirely in memory against the object database,
// never touching the working copy or the real index, while DiskExecutor
// (C8, disk.go) hands conflicted or merge-commit steps to the teacher's
// real on-disk sequencer. Both share the plan's Label/Reset bookkeeping;
// MemoryExecutor additionally parallelizes independent Pick chains with
// a worker pool.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/object"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/rebaseplan"
	"github.com/antgroup/zeta-branchless/modules/zetabl/respool"
)

// ErrCancelled is returned by Run when ctx was cancelled mid-plan; steps
// already applied are left as committed objects (they are unreachable
// garbage until something refs them, so cancellation is always safe to
// retry from the plan's start).
var ErrCancelled = errors.New("executor: cancelled")

// VCS is the subset of pkg/zetabl/vcs.Adapter the in-memory executor
// needs; expressed as an interface so this package has no import-time
// dependency on the concrete adapter (and so tests can supply a fake).
type VCS interface {
	FindCommit(ctx context.Context, o oid.OID) (*object.Commit, error)
	CherryPickFast(ctx context.Context, commit *object.Commit, dest *object.Commit) (plumbing.Hash, error)
	CreateCommit(ctx context.Context, treeHash plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error)
}

// cacheKey is the memoization key spec.md §4.7 describes:
// (tip_tree_oid, commit_oid) -> resulting tree oid.
type cacheKey struct {
	tipTree  plumbing.Hash
	commitID oid.OID
}

// MemoryExecutor interprets a rebaseplan.Plan sequentially on the driver
// goroutine for Label/Reset bookkeeping, dispatching each Pick's cherry-
// pick through a bounded worker pool with a shared memoization cache so
// that two branches picking the same commit onto the same tip reuse one
// result (spec.md §4.7, property "cherry-picks are memoized and shared
// across concurrent branches").
type MemoryExecutor struct {
	vcs      VCS
	pool     *respool.Pool[VCS]
	cache    *ristretto.Cache[cacheKey, plumbing.Hash]
	group    singleflight.Group
	numJobs  int
	progress bool
}

// NewMemoryExecutor builds an executor over vcs with the given worker
// count. pool may be nil, in which case every job reuses vcs directly
// (adequate for numJobs == 1 or a VCS implementation that is itself
// concurrency-safe).
func NewMemoryExecutor(vcs VCS, pool *respool.Pool[VCS], numJobs int, showProgress bool) (*MemoryExecutor, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[cacheKey, plumbing.Hash]{
		NumCounters: 100000,
		MaxCost:     100000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("executor: build cherry-pick cache: %w", err)
	}
	if numJobs < 1 {
		numJobs = 1
	}
	return &MemoryExecutor{vcs: vcs, pool: pool, cache: cache, numJobs: numJobs, progress: showProgress}, nil
}

// Result is the outcome of running a plan: the final oid the tip landed
// on, plus every Replace substitution recorded along the way (for the
// caller to turn into Rewrite events).
type Result struct {
	Tip       oid.OID
	Replaces  map[oid.OID]oid.OID
	Conflicts []ConflictedStep
}

// ConflictedStep records a Pick whose cherry-pick produced a merge
// conflict; MemoryExecutor does not attempt to resolve it — the caller
// falls back to DiskExecutor for that step (spec.md §9's resolved Open
// Question on merge handling generalizes to "anything requiring
// interactive conflict resolution also falls back").
type ConflictedStep struct {
	OID oid.OID
	Err error
}

// tipFuture is a single-assignment promise for the oid a chain of Picks
// eventually lands on: Label/Reset only ever read a previously created
// future, so a Reset back to an earlier label shares that label's future
// rather than blocking on it immediately, letting the branch that
// continues past the Label and the branch that resumes from it (after a
// later Reset) run concurrently until something actually needs both.
type tipFuture struct {
	done chan struct{}
	val  oid.OID
	err  error
}

func newTipFuture() *tipFuture { return &tipFuture{done: make(chan struct{})} }

func resolvedTip(v oid.OID) *tipFuture {
	f := newTipFuture()
	f.val = v
	close(f.done)
	return f
}

func (f *tipFuture) resolve(v oid.OID, err error) {
	f.val, f.err = v, err
	close(f.done)
}

func (f *tipFuture) get(ctx context.Context) (oid.OID, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return oid.OID{}, ctx.Err()
	}
}

// Run interprets plan starting from initialTip (the oid the driver's
// Label/Reset tracking begins at before the plan's own first Reset, if
// any). The Label/Reset/Replace bookkeeping runs on the calling
// goroutine, but each Pick is dispatched to the worker pool as soon as it
// is reached rather than awaited inline: a Pick's dependency is only the
// tip it picks onto, so two chains that both Reset to the same Label —
// and so never read each other's tip — run concurrently, and are only
// implicitly joined where a later step (another Reset to a shared Label,
// or the plan's own final tip) actually needs one of their results. With
// numJobs == 1 the pool admits one Pick at a time, which serializes the
// same dependency order this produces under higher concurrency, giving
// the single-threaded and pooled interpretations the same final Result.
func (e *MemoryExecutor) Run(ctx context.Context, plan *rebaseplan.Plan, initialTip oid.OID) (*Result, error) {
	var bar *mpb.Progress
	var pickBar *mpb.Bar
	if e.progress {
		bar = mpb.New(mpb.WithOutput(os.Stderr), mpb.WithAutoRefresh())
		total := countPicks(plan)
		pickBar = bar.New(int64(total),
			mpb.BarStyle().Filler("#").Padding(" "),
			mpb.PrependDecorators(decor.Name("rebasing")),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
		)
		defer bar.Wait()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.numJobs)

	labels := make(map[string]*tipFuture)
	tip := resolvedTip(initialTip)
	replaces := make(map[oid.OID]oid.OID)
	var mu sync.Mutex
	var conflicts []conflictAtStep

	for i, step := range plan.Steps {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
		}
		switch step.Kind {
		case rebaseplan.StepLabel:
			labels[step.Label] = tip
		case rebaseplan.StepReset:
			if step.Target.Label != "" {
				t, ok := labels[step.Target.Label]
				if !ok {
					return nil, fmt.Errorf("executor: reset to undeclared label %q", step.Target.Label)
				}
				tip = t
			} else {
				tip = resolvedTip(step.Target.OID)
			}
		case rebaseplan.StepReplace:
			mu.Lock()
			replaces[step.OID] = step.Synthetic
			mu.Unlock()
			tip = resolvedTip(step.Synthetic)
		case rebaseplan.StepPick:
			prevTip := tip
			commitOID := step.OID
			stepIndex := i
			next := newTipFuture()
			g.Go(func() error {
				destOID, err := prevTip.get(gctx)
				if err != nil {
					next.resolve(oid.OID{}, err)
					return err
				}
				newTip, err := e.pick(gctx, commitOID, destOID)
				if err != nil {
					var mc *mergeConflictError
					if errors.As(err, &mc) {
						mu.Lock()
						conflicts = append(conflicts, conflictAtStep{step: stepIndex, c: ConflictedStep{OID: commitOID, Err: err}})
						mu.Unlock()
						logrus.WithField("commit", commitOID).Warn("executor: cherry-pick conflict, deferring to on-disk executor")
						next.resolve(destOID, nil)
						return nil
					}
					wrapped := fmt.Errorf("executor: pick %s: %w", commitOID, err)
					next.resolve(oid.OID{}, wrapped)
					return wrapped
				}
				next.resolve(newTip, nil)
				if pickBar != nil {
					pickBar.Increment()
				}
				return nil
			})
			tip = next
		}
	}

	finalTip, tipErr := tip.get(ctx)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if tipErr != nil {
		return nil, tipErr
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].step < conflicts[j].step })
	orderedConflicts := make([]ConflictedStep, len(conflicts))
	for i, c := range conflicts {
		orderedConflicts[i] = c.c
	}
	return &Result{Tip: finalTip, Replaces: replaces, Conflicts: orderedConflicts}, nil
}

// conflictAtStep pairs a ConflictedStep with the plan index it came from
// so concurrent dispatch can still report conflicts in plan order.
type conflictAtStep struct {
	step int
	c    ConflictedStep
}

type mergeConflictError struct{ err error }

func (e *mergeConflictError) Error() string { return e.err.Error() }
func (e *mergeConflictError) Unwrap() error { return e.err }

// pick cherry-picks commit onto the commit tip currently names,
// memoizing by (tip's tree, commit) and coalescing concurrent misses for
// the same key via singleflight so that two branches racing to pick the
// same commit onto the same tip perform the merge once.
func (e *MemoryExecutor) pick(ctx context.Context, commit oid.OID, tip oid.OID) (oid.OID, error) {
	destCommit, err := e.vcs.FindCommit(ctx, tip)
	if err != nil {
		return oid.OID{}, err
	}
	destTree, err := destCommit.Root(ctx)
	if err != nil {
		return oid.OID{}, err
	}
	key := cacheKey{tipTree: destTree.Hash, commitID: commit}
	if cached, ok := e.cache.Get(key); ok {
		return e.finishPick(ctx, commit, destCommit, cached)
	}

	keyStr := fmt.Sprintf("%s:%s", key.tipTree, key.commitID)
	v, err, _ := e.group.Do(keyStr, func() (any, error) {
		worker := e.vcs
		if e.pool != nil {
			h, err := e.pool.Acquire()
			if err != nil {
				return nil, err
			}
			defer e.pool.Release(h)
			worker = h
		}
		srcCommit, err := worker.FindCommit(ctx, commit)
		if err != nil {
			return nil, err
		}
		newTree, err := worker.CherryPickFast(ctx, srcCommit, destCommit)
		if err != nil {
			return nil, &mergeConflictError{err: err}
		}
		e.cache.Set(key, newTree, 1)
		return newTree, nil
	})
	if err != nil {
		return oid.OID{}, err
	}
	return e.finishPick(ctx, commit, destCommit, v.(plumbing.Hash))
}

func (e *MemoryExecutor) finishPick(ctx context.Context, commit oid.OID, destCommit *object.Commit, newTree plumbing.Hash) (oid.OID, error) {
	srcCommit, err := e.vcs.FindCommit(ctx, commit)
	if err != nil {
		return oid.OID{}, err
	}
	h, err := e.vcs.CreateCommit(ctx, newTree, []plumbing.Hash{destCommit.Hash}, srcCommit.Author, srcCommit.Committer, srcCommit.Message)
	if err != nil {
		return oid.OID{}, err
	}
	return oid.New(h)
}

// RunParallelGroups runs count independent plans concurrently (each
// produced by a disjoint subtree of a larger rebase operation spanning
// multiple unrelated branches), bounded by e.numJobs workers, and
// collects their results in input order.
func (e *MemoryExecutor) RunParallelGroups(ctx context.Context, plans []*rebaseplan.Plan, initialTips []oid.OID) ([]*Result, error) {
	if len(plans) != len(initialTips) {
		return nil, fmt.Errorf("executor: plans/initialTips length mismatch")
	}
	results := make([]*Result, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.numJobs)
	var mu sync.Mutex
	for i := range plans {
		i := i
		g.Go(func() error {
			r, err := e.Run(gctx, plans[i], initialTips[i])
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func countPicks(plan *rebaseplan.Plan) int {
	n := 0
	for _, s := range plan.Steps {
		if s.Kind == rebaseplan.StepPick {
			n++
		}
	}
	return n
}
