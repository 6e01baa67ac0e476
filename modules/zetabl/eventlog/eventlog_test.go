// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package eventlog_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/eventlog"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
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
	raw, err := oid.New(h)
	if err != nil {
		panic(err)
	}
	return raw
}

func TestAddAndGetEventsDeterministic(t *testing.T) {
	l := openTemp(t)
	now := time.Unix(1000, 0)
	txID, err := l.MakeTransactionID(now, "amend")
	require.NoError(t, err)

	events := []event.Event{
		event.NewCommit(hash(1)),
		event.NewRewrite(oid.FromOID(hash(1)), oid.FromOID(hash(2))),
	}
	require.NoError(t, l.AddEvents(txID, now, events))

	got1, err := l.GetEvents()
	require.NoError(t, err)
	got2, err := l.GetEvents()
	require.NoError(t, err)
	require.Equal(t, got1, got2, "replay must be deterministic for a fixed log and cursor")
	require.Len(t, got1, 2)
	require.Equal(t, event.KindCommit, got1[0].Kind)
	require.Equal(t, event.KindRewrite, got1[1].Kind)
	require.Equal(t, txID, got1[0].TxID)
}

func TestGetEventsBeforeCursorTruncates(t *testing.T) {
	l := openTemp(t)
	now := time.Unix(2000, 0)
	txID, err := l.MakeTransactionID(now, "batch")
	require.NoError(t, err)
	require.NoError(t, l.AddEvents(txID, now, []event.Event{
		event.NewCommit(hash(1)),
		event.NewCommit(hash(2)),
		event.NewCommit(hash(3)),
	}))

	all, err := l.GetEvents()
	require.NoError(t, err)
	require.Len(t, all, 3)

	first, err := l.GetEventsBeforeCursor(1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, all[0], first[0])

	none, err := l.GetEventsBeforeCursor(0)
	require.NoError(t, err)
	require.Len(t, none, 0)
}
