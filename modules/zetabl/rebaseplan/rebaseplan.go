// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rebaseplan turns a set of subtree-move requests into a
// validated, linear sequence of primitive rebase operations (spec.md
// §4.6, "C6"): Pick, Label, Reset, and Replace. It has no I/O of its
// own beyond the DuplicateFinder callback for optional patch-id-based
// deduplication; everything else is graph arithmetic over a
// *dagindex.Index, mirroring the teacher's own separation between
// planning (pure) and execution (pkg/zeta/worktree_rebase.go's
// rebaseInternal, which actually touches the object database).
package rebaseplan

import (
	"context"
	"fmt"
	"sort"

	"github.com/antgroup/zeta-branchless/modules/zetabl/dagindex"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// MoveSubtree requests that the subtree rooted at Source (Source and all
// its observed descendants, up to any other move's Source) be reparented
// so that Source's new first parent is Dest.
type MoveSubtree struct {
	Source oid.OID
	Dest   oid.OID
}

// Options controls optional plan-building behavior.
type Options struct {
	// DetectDuplicateCommitsViaPatchID enables the pre-pass that replaces
	// a Pick with a Replace when an identical commit (by patch id)
	// already exists at the destination.
	DetectDuplicateCommitsViaPatchID bool
	// AllowMovePublicCommits overrides the public-commit guard; without
	// it, a plan touching any public commit fails closed.
	AllowMovePublicCommits bool
}

// CyclicMoveRequests is returned when a move would reparent a commit
// under its own descendant.
type CyclicMoveRequests struct {
	Cycle []oid.OID
}

func (e *CyclicMoveRequests) Error() string {
	return fmt.Sprintf("rebaseplan: cyclic move requests among %v", e.Cycle)
}

// MovePublicCommits is returned when a plan's touched set intersects the
// public (main-branch-reachable) commits, unless Options.AllowMovePublicCommits
// is set.
type MovePublicCommits struct {
	OIDs []oid.OID
}

func (e *MovePublicCommits) Error() string {
	return fmt.Sprintf("rebaseplan: move would rewrite %d published commit(s)", len(e.OIDs))
}

// StepKind discriminates Plan step variants.
type StepKind int

const (
	StepPick StepKind = iota
	StepLabel
	StepReset
	StepReplace
)

// Position is a Reset target: either a previously declared Label or a
// concrete, already-existing oid (e.g. a move's Dest).
type Position struct {
	Label string
	OID   oid.OID
}

func labelPosition(name string) Position { return Position{Label: name} }
func oidPosition(o oid.OID) Position     { return Position{OID: o} }

func (p Position) isLabel() bool { return p.Label != "" }

// Step is one primitive rebase-plan operation.
type Step struct {
	Kind StepKind

	// StepPick / StepReplace.Original
	OID oid.OID
	// StepLabel
	Label string
	// StepReset
	Target Position
	// StepReplace
	Synthetic oid.OID
}

// Plan is the validated, ordered sequence of steps an executor (C7/C8)
// interprets.
type Plan struct {
	Steps []Step
}

// DuplicateFinder supplies the two I/O-bound operations the optional
// duplicate-detection pre-pass needs; production callers implement it
// over pkg/zetabl/vcs.Adapter, tests over a fake.
type DuplicateFinder interface {
	PatchID(ctx context.Context, o oid.OID) (string, error)
	// FindExisting returns an existing child of parent (in the full,
	// not just touched, graph) whose patch id equals patchID.
	FindExisting(ctx context.Context, parent oid.OID, patchID string) (oid.OID, bool, error)
}

type builder struct {
	idx      *dagindex.Index
	opts     Options
	dup      DuplicateFinder
	ctx      context.Context
	moveDest map[oid.OID]oid.OID
	touched  map[oid.OID]bool
	replaced map[oid.OID]oid.OID // original -> synthetic, once Replace'd
	labelSeq int
	steps    []Step
	tip      Position
}

// Build validates moves against idx and produces a Plan, or one of
// *CyclicMoveRequests / *MovePublicCommits on failure. dup may be nil
// when opts.DetectDuplicateCommitsViaPatchID is false.
func Build(ctx context.Context, idx *dagindex.Index, moves []MoveSubtree, opts Options, dup DuplicateFinder) (*Plan, error) {
	b := &builder{
		idx:      idx,
		opts:     opts,
		dup:      dup,
		ctx:      ctx,
		moveDest: make(map[oid.OID]oid.OID, len(moves)),
		replaced: make(map[oid.OID]oid.OID),
	}
	for _, m := range moves {
		b.moveDest[m.Source] = m.Dest
	}

	if err := b.checkCycles(moves); err != nil {
		return nil, err
	}

	touchedSet := idx.SetOf()
	for _, m := range moves {
		touchedSet = touchedSet.Union(idx.Descendants(idx.SetOf(m.Source)))
	}
	b.touched = make(map[oid.OID]bool, touchedSet.Count())
	for _, o := range touchedSet.ToVec() {
		b.touched[o] = true
	}

	if !opts.AllowMovePublicCommits {
		public := idx.Public().Intersect(touchedSet)
		if public.Count() > 0 {
			return nil, &MovePublicCommits{OIDs: public.ToVec()}
		}
	}

	// Process moves in a deterministic order (by source oid) so plan
	// output is stable across runs.
	ordered := append([]MoveSubtree{}, moves...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Source.Less(ordered[j].Source) })
	for _, m := range ordered {
		if err := b.processRoot(m.Source, m.Dest); err != nil {
			return nil, err
		}
	}

	if err := validate(b.steps); err != nil {
		return nil, err
	}
	return &Plan{Steps: b.steps}, nil
}

func (b *builder) checkCycles(moves []MoveSubtree) error {
	var cycle []oid.OID
	for _, m := range moves {
		if b.idx.IsAncestor(m.Source, m.Dest) && !m.Source.Equal(m.Dest) {
			cycle = append(cycle, m.Source, m.Dest)
		}
	}
	if len(cycle) > 0 {
		return &CyclicMoveRequests{Cycle: cycle}
	}
	return nil
}

func (b *builder) resetTo(pos Position) {
	if b.tip == pos {
		return
	}
	b.steps = append(b.steps, Step{Kind: StepReset, Target: pos})
	b.tip = pos
}

func (b *builder) newLabel() string {
	b.labelSeq++
	return fmt.Sprintf("L%d", b.labelSeq)
}

func (b *builder) processRoot(source, dest oid.OID) error {
	b.resetTo(oidPosition(dest))
	return b.dfs(source, dest)
}

// dfs emits the chain rooted at node. logicalParent is used only for
// patch-id duplicate lookups: it is the move's Dest when node is a move's
// Source, and node's pre-rebase parent otherwise. It assumes
// b.tip is already positioned at node's new parent on entry.
func (b *builder) dfs(node, logicalParent oid.OID) error {
	if err := b.pick(node, logicalParent); err != nil {
		return err
	}
	children := b.childrenInChain(node)
	switch len(children) {
	case 0:
		return nil
	case 1:
		return b.dfs(children[0], node)
	default:
		label := b.newLabel()
		b.steps = append(b.steps, Step{Kind: StepLabel, Label: label})
		labelPos := labelPosition(label)
		b.tip = labelPos
		for i, c := range children {
			if i > 0 {
				b.resetTo(labelPos)
			}
			if err := b.dfs(c, node); err != nil {
				return err
			}
		}
		return nil
	}
}

// childrenInChain returns node's children within the touched set, except
// any child that is itself the Source of another move (that child's
// position is fully determined by its own move, not by descending here —
// spec.md §4.6 step 1's "up to the next requested move boundary").
func (b *builder) childrenInChain(node oid.OID) []oid.OID {
	all := b.idx.Children(b.idx.SetOf(node)).ToVec()
	out := make([]oid.OID, 0, len(all))
	for _, c := range all {
		if !b.touched[c] {
			continue
		}
		if _, isSource := b.moveDest[c]; isSource {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (b *builder) pick(node, logicalParent oid.OID) error {
	if b.opts.DetectDuplicateCommitsViaPatchID && b.dup != nil {
		pid, err := b.dup.PatchID(b.ctx, node)
		if err != nil {
			return fmt.Errorf("rebaseplan: patch id for %s: %w", node, err)
		}
		if existing, ok, err := b.dup.FindExisting(b.ctx, logicalParent, pid); err != nil {
			return fmt.Errorf("rebaseplan: duplicate lookup for %s: %w", node, err)
		} else if ok {
			b.steps = append(b.steps, Step{Kind: StepReplace, OID: node, Synthetic: existing})
			b.replaced[node] = existing
			b.tip = oidPosition(existing)
			return nil
		}
	}
	b.steps = append(b.steps, Step{Kind: StepPick, OID: node})
	b.tip = oidPosition(node)
	return nil
}

// validate re-checks the structural invariants spec.md §4.6 step 5
// requires: every Reset references a previously declared label or a
// concrete oid, and every Pick/Replace original is unique.
func validate(steps []Step) error {
	declared := make(map[string]bool)
	picked := make(map[oid.OID]bool)
	for _, s := range steps {
		switch s.Kind {
		case StepLabel:
			declared[s.Label] = true
		case StepReset:
			if s.Target.isLabel() && !declared[s.Target.Label] {
				return fmt.Errorf("rebaseplan: reset references undeclared label %q", s.Target.Label)
			}
		case StepPick, StepReplace:
			if picked[s.OID] {
				return fmt.Errorf("rebaseplan: %s picked more than once", s.OID)
			}
			picked[s.OID] = true
		}
	}
	return nil
}
