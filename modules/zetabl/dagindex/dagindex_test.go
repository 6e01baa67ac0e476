// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package dagindex_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"

	"github.com/antgroup/zeta-branchless/modules/zetabl/dagindex"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// fakeGraph is a hand-built parent map, the same shape rebaseplan_test.go
// drives dagindex.Index with.
type fakeGraph struct {
	parents map[oid.OID][]oid.OID
	times   map[oid.OID]time.Time
}

func (g *fakeGraph) Parents(_ context.Context, o oid.OID) ([]oid.OID, error) {
	return g.parents[o], nil
}

func (g *fakeGraph) CommitTime(_ context.Context, o oid.OID) (time.Time, error) {
	if t, ok := g.times[o]; ok {
		return t, nil
	}
	return time.Unix(int64(o.Hash()[31]), 0), nil
}

func hashOID(b byte) oid.OID {
	var h plumbing.Hash
	h[len(h)-1] = b
	o, err := oid.New(h)
	if err != nil {
		panic(err)
	}
	return o
}

// buildDiamond builds:
//
//	a -> b -> d
//	a -> c -> d
//
// so b and c are both single parents of d but unrelated to each other,
// and a is the sole root.
func buildDiamond(t *testing.T) (*dagindex.Index, oid.OID, oid.OID, oid.OID, oid.OID) {
	t.Helper()
	a, b, c, d := hashOID(1), hashOID(2), hashOID(3), hashOID(4)
	g := &fakeGraph{parents: map[oid.OID][]oid.OID{
		b: {a},
		c: {a},
		d: {b, c},
	}}
	idx := dagindex.New(context.Background(), g, []oid.OID{a, b, c, d}, nil)
	return idx, a, b, c, d
}

func TestAncestorsAndDescendants(t *testing.T) {
	idx, a, b, c, d := buildDiamond(t)

	anc := idx.Ancestors(idx.SetOf(d))
	require.Equal(t, 4, anc.Count())
	require.True(t, anc.Contains(a))
	require.True(t, anc.Contains(b))
	require.True(t, anc.Contains(c))
	require.True(t, anc.Contains(d))

	desc := idx.Descendants(idx.SetOf(a))
	require.Equal(t, 4, desc.Count())
	require.True(t, desc.Contains(d))

	onlyB := idx.Descendants(idx.SetOf(b))
	require.True(t, onlyB.Contains(b))
	require.True(t, onlyB.Contains(d))
	require.False(t, onlyB.Contains(c))
}

func TestRangeAndOnly(t *testing.T) {
	idx, a, b, _, d := buildDiamond(t)

	r := idx.Range(idx.SetOf(b), idx.SetOf(d))
	require.True(t, r.Contains(b))
	require.True(t, r.Contains(d))
	require.False(t, r.Contains(a))

	only := idx.Only(idx.SetOf(d), idx.SetOf(b))
	require.True(t, only.Contains(d))
	require.True(t, only.Contains(a))
	require.False(t, only.Contains(b))
}

func TestRootsAndHeads(t *testing.T) {
	idx, a, b, c, d := buildDiamond(t)

	roots := idx.Roots(idx.SetOf(a, b, c, d))
	require.Equal(t, 1, roots.Count())
	require.True(t, roots.Contains(a))

	heads := idx.Heads(idx.SetOf(a, b, c, d))
	require.Equal(t, 1, heads.Count())
	require.True(t, heads.Contains(d))
}

func TestMergeBases(t *testing.T) {
	idx, a, b, c, _ := buildDiamond(t)

	mb := idx.MergeBases(b, c)
	require.Equal(t, 1, mb.Count())
	require.True(t, mb.Contains(a))
}

func TestIsAncestor(t *testing.T) {
	idx, a, b, c, d := buildDiamond(t)
	require.True(t, idx.IsAncestor(a, d))
	require.True(t, idx.IsAncestor(b, d))
	require.False(t, idx.IsAncestor(b, c))
	require.True(t, idx.IsAncestor(d, d))
}

func TestPublicAndDraft(t *testing.T) {
	idx, a, b, c, d := buildDiamond(t)
	idx.SetMainBranchCommits([]oid.OID{b})

	pub := idx.Public()
	require.True(t, pub.Contains(a))
	require.True(t, pub.Contains(b))
	require.False(t, pub.Contains(c))
	require.False(t, pub.Contains(d))

	draft := idx.Draft()
	require.False(t, draft.Contains(a))
	require.False(t, draft.Contains(b))
	require.True(t, draft.Contains(c))
	require.True(t, draft.Contains(d))
}

func TestSortOrdersAncestorsBeforeDescendants(t *testing.T) {
	idx, a, b, c, d := buildDiamond(t)

	out, err := idx.Sort(idx.SetOf(a, b, c, d))
	require.NoError(t, err)
	require.Len(t, out, 4)

	pos := make(map[oid.OID]int, len(out))
	for i, o := range out {
		pos[o] = i
	}
	require.Less(t, pos[a], pos[b])
	require.Less(t, pos[a], pos[c])
	require.Less(t, pos[b], pos[d])
	require.Less(t, pos[c], pos[d])
}

func TestSortIsStableByCommitTimeThenOID(t *testing.T) {
	a, b, c := hashOID(1), hashOID(2), hashOID(3)
	g := &fakeGraph{
		parents: map[oid.OID][]oid.OID{},
		times: map[oid.OID]time.Time{
			a: time.Unix(100, 0),
			b: time.Unix(100, 0),
			c: time.Unix(50, 0),
		},
	}
	idx := dagindex.New(context.Background(), g, []oid.OID{a, b, c}, nil)
	out, err := idx.Sort(idx.SetOf(a, b, c))
	require.NoError(t, err)
	require.Equal(t, c, out[0], "earlier commit time sorts first among unrelated roots")
	if a.Less(b) {
		require.Equal(t, []oid.OID{c, a, b}, out)
	} else {
		require.Equal(t, []oid.OID{c, b, a}, out)
	}
}

// cyclicGraph reports parent edges that form a cycle, which cannot happen
// over a real commit DAG but can happen if a Graph implementation is
// buggy or the observed set is built from inconsistent data.
type cyclicGraph struct{}

func (cyclicGraph) Parents(_ context.Context, o oid.OID) ([]oid.OID, error) {
	a, b := hashOID(1), hashOID(2)
	if o.Equal(a) {
		return []oid.OID{b}, nil
	}
	return []oid.OID{a}, nil
}

func (cyclicGraph) CommitTime(_ context.Context, o oid.OID) (time.Time, error) {
	return time.Unix(int64(o.Hash()[31]), 0), nil
}

func TestSortReportsCycleInsteadOfPanicking(t *testing.T) {
	a, b := hashOID(1), hashOID(2)
	idx := dagindex.New(context.Background(), cyclicGraph{}, []oid.OID{a, b}, nil)
	out, err := idx.Sort(idx.SetOf(a, b))
	require.Nil(t, out)
	var cyc *dagindex.ErrCycle
	require.ErrorAs(t, err, &cyc)
	require.Equal(t, 2, cyc.Want)
	require.Equal(t, 0, cyc.Got)
}
