// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package dagindex is the ancestor/descendant/range query layer over the
// set of observed commits (spec.md §4.4, "C4"). It is a thin wrapper over
// the object graph's parent relation plus an observed-commit set; its
// topological sort reuses the teacher's own commit-walker data structure
// (github.com/emirpasic/gods binaryheap, as in
// modules/zeta/object/commit_walker_ctime.go and commit_walker_bfs.go) to
// rank commits by commit time.
package dagindex

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// Graph resolves the ambient VCS's parent relation and commit timestamps;
// it is the one I/O seam this package depends on (implemented by the C1
// object-db adapter in production, and by a fake in tests).
type Graph interface {
	Parents(ctx context.Context, o oid.OID) ([]oid.OID, error)
	CommitTime(ctx context.Context, o oid.OID) (time.Time, error)
}

// Index wraps Graph with the set of observed commits (plus anything
// explicitly referenced by the user's command) and computes ancestor,
// descendant, range, roots/heads, and public/draft queries over them. It is
// read-only and rebuilt fresh per command (spec.md §5).
type Index struct {
	ctx      context.Context
	graph    Graph
	observed map[oid.OID]bool
	obsolete map[oid.OID]bool

	mainBranchCommits map[oid.OID]bool

	parentsCache map[oid.OID][]oid.OID
	childCache   map[oid.OID][]oid.OID
	timeCache    map[oid.OID]time.Time
}

// New builds an Index over observed (the replayer's Active set plus any
// oids explicitly named in the user's command) and obsolete (oids whose
// replay status is Obsolete).
func New(ctx context.Context, graph Graph, observed, obsolete []oid.OID) *Index {
	idx := &Index{
		ctx:          ctx,
		graph:        graph,
		observed:     toSet(observed),
		obsolete:     toSet(obsolete),
		parentsCache: make(map[oid.OID][]oid.OID),
		childCache:   make(map[oid.OID][]oid.OID),
		timeCache:    make(map[oid.OID]time.Time),
	}
	return idx
}

// SetMainBranchCommits records the commits reachable from the designated
// "main" ref; Public()/Draft() derive from it.
func (idx *Index) SetMainBranchCommits(mainCommits []oid.OID) {
	idx.mainBranchCommits = toSet(mainCommits)
}

func toSet(oids []oid.OID) map[oid.OID]bool {
	m := make(map[oid.OID]bool, len(oids))
	for _, o := range oids {
		m[o] = true
	}
	return m
}

func (idx *Index) parents(o oid.OID) []oid.OID {
	if p, ok := idx.parentsCache[o]; ok {
		return p
	}
	p, err := idx.graph.Parents(idx.ctx, o)
	if err != nil {
		p = nil
	}
	idx.parentsCache[o] = p
	for _, parent := range p {
		idx.childCache[parent] = append(idx.childCache[parent], o)
	}
	return p
}

func (idx *Index) commitTime(o oid.OID) time.Time {
	if t, ok := idx.timeCache[o]; ok {
		return t
	}
	t, err := idx.graph.CommitTime(idx.ctx, o)
	if err != nil {
		t = time.Time{}
	}
	idx.timeCache[o] = t
	return t
}

// Set is a materialized set of commit oids. Terminal methods (ToVec, Count,
// Contains) are the only way to observe its contents; spec.md describes the
// operators as composing "lazily" — here that laziness is approximated by
// keeping every combinator cheap (map operations over already-materialized
// sets) rather than literally deferring traversal, which is an
// implementation simplification noted in DESIGN.md.
type Set struct {
	idx *Index
	m   map[oid.OID]bool
}

func (idx *Index) newSet(m map[oid.OID]bool) Set { return Set{idx: idx, m: m} }

// SetOf builds a Set from an explicit oid slice.
func (idx *Index) SetOf(oids ...oid.OID) Set { return idx.newSet(toSet(oids)) }

func (s Set) ToVec() []oid.OID {
	out := make([]oid.OID, 0, len(s.m))
	for o := range s.m {
		out = append(out, o)
	}
	return out
}

func (s Set) Count() int { return len(s.m) }

func (s Set) Contains(o oid.OID) bool { return s.m[o] }

func (s Set) Union(other Set) Set {
	out := make(map[oid.OID]bool, len(s.m)+len(other.m))
	for o := range s.m {
		out[o] = true
	}
	for o := range other.m {
		out[o] = true
	}
	return s.idx.newSet(out)
}

func (s Set) Intersect(other Set) Set {
	out := make(map[oid.OID]bool)
	small, big := s.m, other.m
	if len(other.m) < len(small) {
		small, big = other.m, small
	}
	for o := range small {
		if big[o] {
			out[o] = true
		}
	}
	return s.idx.newSet(out)
}

func (s Set) Difference(other Set) Set {
	out := make(map[oid.OID]bool)
	for o := range s.m {
		if !other.m[o] {
			out[o] = true
		}
	}
	return s.idx.newSet(out)
}

// Parents returns the union of direct parents of every commit in s,
// intersected with the observed set (spec.md's DAG only tracks observed
// commits).
func (idx *Index) Parents(s Set) Set {
	out := make(map[oid.OID]bool)
	for o := range s.m {
		for _, p := range idx.parents(o) {
			if idx.observed[p] {
				out[p] = true
			}
		}
	}
	return idx.newSet(out)
}

// Children returns the union of direct children of every commit in s, among
// observed commits.
func (idx *Index) Children(s Set) Set {
	out := make(map[oid.OID]bool)
	// Ensure children links are populated by walking parents of every
	// observed commit at least once.
	for o := range idx.observed {
		idx.parents(o)
	}
	for o := range s.m {
		for _, c := range idx.childCache[o] {
			out[c] = true
		}
	}
	return idx.newSet(out)
}

// Ancestors returns s plus every ancestor reachable by following parent
// edges; unlike Parents, it does not restrict the walk to observed commits.
func (idx *Index) Ancestors(s Set) Set {
	out := make(map[oid.OID]bool, len(s.m))
	stack := s.ToVec()
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[o] {
			continue
		}
		out[o] = true
		for _, p := range idx.parents(o) {
			if !out[p] {
				stack = append(stack, p)
			}
		}
	}
	return idx.newSet(out)
}

// Descendants returns s plus every observed descendant reachable by
// following child edges.
func (idx *Index) Descendants(s Set) Set {
	for o := range idx.observed {
		idx.parents(o)
	}
	out := make(map[oid.OID]bool, len(s.m))
	stack := s.ToVec()
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[o] {
			continue
		}
		out[o] = true
		for _, c := range idx.childCache[o] {
			if !out[c] {
				stack = append(stack, c)
			}
		}
	}
	return idx.newSet(out)
}

// Range returns descendants(lo) ∩ ancestors(hi).
func (idx *Index) Range(lo, hi Set) Set {
	return idx.Descendants(lo).Intersect(idx.Ancestors(hi))
}

// Only returns ancestors(lhs) − ancestors(rhs).
func (idx *Index) Only(lhs, rhs Set) Set {
	return idx.Ancestors(lhs).Difference(idx.Ancestors(rhs))
}

// Roots returns the commits in s with no parent also in s.
func (idx *Index) Roots(s Set) Set {
	out := make(map[oid.OID]bool)
	for o := range s.m {
		hasParentInSet := false
		for _, p := range idx.parents(o) {
			if s.m[p] {
				hasParentInSet = true
				break
			}
		}
		if !hasParentInSet {
			out[o] = true
		}
	}
	return idx.newSet(out)
}

// Heads returns the commits in s with no child also in s.
func (idx *Index) Heads(s Set) Set {
	for o := range idx.observed {
		idx.parents(o)
	}
	out := make(map[oid.OID]bool)
	for o := range s.m {
		hasChildInSet := false
		for _, c := range idx.childCache[o] {
			if s.m[c] {
				hasChildInSet = true
				break
			}
		}
		if !hasChildInSet {
			out[o] = true
		}
	}
	return idx.newSet(out)
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (idx *Index) IsAncestor(a, b oid.OID) bool {
	return idx.Ancestors(idx.SetOf(b)).Contains(a)
}

// MergeBases returns the roots of ancestors(a) ∩ ancestors(b): the set of
// best common ancestors of a and b. The retrieval pack's copy of the
// teacher's object.Commit is missing its own MergeBase method (see
// DESIGN.md), so this is built from the set-algebra primitives above
// instead of wrapping it.
func (idx *Index) MergeBases(a, b oid.OID) Set {
	common := idx.Ancestors(idx.SetOf(a)).Intersect(idx.Ancestors(idx.SetOf(b)))
	return idx.Roots(common)
}

// Public returns ancestors(mainBranchCommits).
func (idx *Index) Public() Set {
	return idx.Ancestors(idx.newSet(idx.mainBranchCommits))
}

// Draft returns observed − public.
func (idx *Index) Draft() Set {
	observedSet := idx.newSet(idx.observed)
	return observedSet.Difference(idx.Public())
}

// ErrCycle is returned by Sort when s contains a cycle, which can only
// happen over a malformed graph (a Graph implementation reporting
// inconsistent parent edges): a well-formed commit DAG never cycles, so
// this is reported as a typed error rather than trusted to be
// unreachable.
type ErrCycle struct {
	Want int
	Got  int
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("dagindex: cycle detected while sorting %d commits, only %d emitted", e.Want, e.Got)
}

// Sort performs a stable topological sort of s: ancestors before
// descendants, and commits at the same topological rank ordered by
// (commit time ascending, oid ascending), matching the teacher's own
// commit-time ordered walkers (modules/zeta/object/commit_walker_ctime.go).
// It reports *ErrCycle rather than panicking if s is not actually a DAG.
func (idx *Index) Sort(s Set) ([]oid.OID, error) {
	inSet := s.m
	indegree := make(map[oid.OID]int, len(inSet))
	for o := range inSet {
		n := 0
		for _, p := range idx.parents(o) {
			if inSet[p] {
				n++
			}
		}
		indegree[o] = n
	}

	less := func(a, b any) int {
		oa, ob := a.(oid.OID), b.(oid.OID)
		ta, tb := idx.commitTime(oa), idx.commitTime(ob)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		case oa.Less(ob):
			return -1
		case ob.Less(oa):
			return 1
		default:
			return 0
		}
	}
	ready := binaryheap.NewWith(less)
	for o, n := range indegree {
		if n == 0 {
			ready.Push(o)
		}
	}
	for o := range idx.observed {
		idx.parents(o)
	}
	out := make([]oid.OID, 0, len(inSet))
	remaining := make(map[oid.OID]int, len(indegree))
	for o, n := range indegree {
		remaining[o] = n
	}
	for ready.Size() > 0 {
		v, _ := ready.Pop()
		o := v.(oid.OID)
		out = append(out, o)
		for _, c := range idx.childCache[o] {
			if _, ok := remaining[c]; !ok {
				continue
			}
			remaining[c]--
			if remaining[c] == 0 {
				ready.Push(c)
			}
		}
	}
	if len(out) != len(inSet) {
		return nil, &ErrCycle{Want: len(inSet), Got: len(out)}
	}
	return out, nil
}
