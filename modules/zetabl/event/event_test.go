// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"

	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

func hash(b byte) plumbing.Hash {
	var h plumbing.Hash
	h[len(h)-1] = b
	return h
}

func TestKindStringNamesEveryVariant(t *testing.T) {
	for k, want := range map[event.Kind]string{
		event.KindRefUpdate:          "RefUpdate",
		event.KindCommit:             "Commit",
		event.KindRewrite:            "Rewrite",
		event.KindObsolete:           "Obsolete",
		event.KindUnobsolete:         "Unobsolete",
		event.KindWorkingCopySnapshot: "WorkingCopySnapshot",
	} {
		require.Equal(t, want, k.String())
	}
	require.Equal(t, "Unknown", event.Kind(0).String())
}

func TestRelevantOIDsForCommitObsoleteUnobsolete(t *testing.T) {
	o := oid.MustNew(hash(1))
	require.Equal(t, []oid.OID{o}, event.NewCommit(o).RelevantOIDs())
	require.Equal(t, []oid.OID{o}, event.NewObsolete(o).RelevantOIDs())
	require.Equal(t, []oid.OID{o}, event.NewUnobsolete(o).RelevantOIDs())
}

func TestRelevantOIDsForRewriteSkipsZeroSides(t *testing.T) {
	oldOID, newOID := oid.MustNew(hash(1)), oid.MustNew(hash(2))

	both := event.NewRewrite(oid.FromOID(oldOID), oid.FromOID(newOID))
	require.ElementsMatch(t, []oid.OID{oldOID, newOID}, both.RelevantOIDs())

	droppedTo := event.NewRewrite(oid.FromOID(oldOID), oid.ZeroValue)
	require.Equal(t, []oid.OID{oldOID}, droppedTo.RelevantOIDs())
}

func TestRelevantOIDsForRefUpdateAndSnapshotIsEmpty(t *testing.T) {
	ref := event.NewRefUpdate("refs/heads/main", oid.ZeroValue, oid.FromOID(oid.MustNew(hash(1))), "")
	require.Empty(t, ref.RelevantOIDs())

	snap := event.NewWorkingCopySnapshot(oid.ZeroValue, oid.MustNew(hash(2)), "refs/heads/main")
	require.Empty(t, snap.RelevantOIDs())
}
