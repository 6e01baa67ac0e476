// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package hooks_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"

	"github.com/antgroup/zeta-branchless/modules/zetabl/dagindex"
	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/eventlog"
	"github.com/antgroup/zeta-branchless/modules/zetabl/hooks"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/replay"
)

func openTemp(t *testing.T) *eventlog.Log {
	t.Helper()
	l, err := eventlog.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func hash(b byte) oid.OID {
	var h plumbing.Hash
	h[len(h)-1] = b
	o, err := oid.New(h)
	if err != nil {
		panic(err)
	}
	return o
}

type fakeGraph struct {
	parents map[oid.OID][]oid.OID
}

func (g *fakeGraph) Parents(_ context.Context, o oid.OID) ([]oid.OID, error) {
	return g.parents[o], nil
}

func (g *fakeGraph) CommitTime(_ context.Context, o oid.OID) (time.Time, error) {
	return time.Unix(int64(o.Hash()[31]), 0), nil
}

func TestReferenceTransactionSkipsHiddenAndIgnoredRefs(t *testing.T) {
	l := openTemp(t)
	h := &hooks.Hooks{Log: l, Now: func() time.Time { return time.Unix(100, 0) }}

	a, b := hash(1), hash(2)
	input := strings.Join([]string{
		"0000000000000000000000000000000000000000 " + a.String() + " refs/heads/main",
		"0000000000000000000000000000000000000000 " + b.String() + " refs/branchless/" + b.String(),
		"0000000000000000000000000000000000000000 " + a.String() + " MERGE_HEAD",
	}, "\n")
	require.NoError(t, h.ReferenceTransaction(context.Background(), strings.NewReader(input)))

	events, err := l.GetEvents()
	require.NoError(t, err)
	require.Len(t, events, 1, "only the non-hidden, non-ignored ref update should produce an event")
	require.Equal(t, plumbing.ReferenceName("refs/heads/main"), events[0].RefName)
}

func TestPostCommitRecordsCommitEvent(t *testing.T) {
	l := openTemp(t)
	h := &hooks.Hooks{Log: l, Now: func() time.Time { return time.Unix(200, 0) }}
	o := hash(1)
	require.NoError(t, h.PostCommit(context.Background(), o))

	events, err := l.GetEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, o, events[0].OID)
}

func TestPostRewriteWarnsOnAbandonedDescendant(t *testing.T) {
	l := openTemp(t)
	h := &hooks.Hooks{Log: l, Now: func() time.Time { return time.Unix(300, 0) }}

	a, b, bPrime, c := hash(1), hash(2), hash(3), hash(4)
	// Graph before rewrite: a -> b -> c. b is amended into bPrime; c is
	// still parented on the old b in this fake graph (the planner/
	// executor would reparent it in a real rewrite, but the hook's
	// abandonment check only needs the pre-restack shape).
	g := &fakeGraph{parents: map[oid.OID][]oid.OID{
		b: {a},
		c: {b},
	}}
	idx := dagindex.New(context.Background(), g, []oid.OID{a, b, bPrime, c}, nil)

	// c must already be Active (observed, not obsolete) in the pre-rewrite
	// replayer for the abandonment check to flag it.
	setupTx, err := l.MakeTransactionID(time.Unix(250, 0), "setup")
	require.NoError(t, err)
	require.NoError(t, l.AddEvents(setupTx, time.Unix(250, 0), []event.Event{
		event.NewCommit(a), event.NewCommit(b), event.NewCommit(c),
	}))
	preEvents, err := l.GetEvents()
	require.NoError(t, err)
	replayer := replay.New(preEvents)

	hints, err := h.PostRewrite(context.Background(), []hooks.RewritePair{
		{Old: oid.FromOID(b), New: oid.FromOID(bPrime)},
	}, idx, replayer)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	require.Equal(t, oid.FromOID(b), hints[0].Rewritten)
	require.Equal(t, []oid.OID{c}, hints[0].Abandoned)

	logged, err := l.GetEvents()
	require.NoError(t, err)
	require.Len(t, logged, 4, "3 setup commits plus 1 rewrite event")
}

func TestPreAutoGCRefuses(t *testing.T) {
	l := openTemp(t)
	h := &hooks.Hooks{Log: l, Now: time.Now}
	require.ErrorIs(t, h.PreAutoGC(context.Background()), hooks.ErrGCRefused)
}
