// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package gckeeper_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/refs"

	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/gckeeper"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/replay"
)

func hash(b byte) oid.OID {
	var h plumbing.Hash
	h[len(h)-1] = b
	o, err := oid.New(h)
	if err != nil {
		panic(err)
	}
	return o
}

func TestKeepCreatesHiddenRef(t *testing.T) {
	be := refs.NewBackend(t.TempDir())
	k := gckeeper.New(be)
	o := hash(1)
	require.NoError(t, k.Keep(o))
	ref, err := be.Reference(gckeeper.RefName(o))
	require.NoError(t, err)
	require.Equal(t, o.Hash(), ref.Hash())
}

func TestKeepIsIdempotent(t *testing.T) {
	be := refs.NewBackend(t.TempDir())
	k := gckeeper.New(be)
	o := hash(1)
	require.NoError(t, k.Keep(o))
	require.NoError(t, k.Keep(o))
	db, err := be.References()
	require.NoError(t, err)
	require.Len(t, db.References(), 1)
}

func TestSweepRemovesOnlyObsoleteCommits(t *testing.T) {
	be := refs.NewBackend(t.TempDir())
	k := gckeeper.New(be)
	active, obsoleted, neverSeen := hash(1), hash(2), hash(3)
	require.NoError(t, k.Keep(active))
	require.NoError(t, k.Keep(obsoleted))
	require.NoError(t, k.Keep(neverSeen))

	replayer := replay.New([]event.Event{
		event.NewCommit(active),
		event.NewCommit(obsoleted),
		event.NewObsolete(obsoleted),
	})

	result, err := k.Sweep(replayer)
	require.NoError(t, err)
	require.ElementsMatch(t, []oid.OID{obsoleted}, result.Removed)

	_, err = be.Reference(gckeeper.RefName(active))
	require.NoError(t, err, "active commit's hidden ref must survive a sweep")
	_, err = be.Reference(gckeeper.RefName(neverSeen))
	require.NoError(t, err, "a commit never explicitly obsoleted must survive a sweep even if Inactive")
	_, err = be.Reference(gckeeper.RefName(obsoleted))
	require.Error(t, err, "an Obsolete commit's hidden ref must be removed by a sweep")
}
