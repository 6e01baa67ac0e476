// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/object"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/snapshot"
)

// fakeStore is an in-memory commit store standing in for the vcs
// adapter: commits are addressed by a deterministic counter rather than
// real content hashing, which is irrelevant to this package's logic.
type fakeStore struct {
	next    byte
	commits map[plumbing.Hash]*object.Commit
}

func newFakeStore() *fakeStore {
	return &fakeStore{commits: make(map[plumbing.Hash]*object.Commit)}
}

func (f *fakeStore) CreateCommit(_ context.Context, tree plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error) {
	f.next++
	var h plumbing.Hash
	h[len(h)-1] = f.next
	f.commits[h] = &object.Commit{Hash: h, Tree: tree, Parents: parents, Author: author, Committer: committer, Message: message}
	return h, nil
}

func (f *fakeStore) FindCommit(_ context.Context, o oid.OID) (*object.Commit, error) {
	c, ok := f.commits[o.Hash()]
	if !ok {
		return nil, plumbing.NewErrRevNotFound("commit %s not found", o)
	}
	return c, nil
}

func treeHash(b byte) plumbing.Hash {
	var h plumbing.Hash
	h[0] = b
	return h
}

func headOID(store *fakeStore, b byte) oid.OID {
	h, err := store.CreateCommit(context.Background(), treeHash(b), nil, object.Signature{}, object.Signature{}, "head")
	if err != nil {
		panic(err)
	}
	o, err := oid.New(h)
	if err != nil {
		panic(err)
	}
	return o
}

func TestCreateAndRestoreRoundTrip(t *testing.T) {
	store := newFakeStore()
	head := headOID(store, 1)
	now := time.Unix(5000, 0)

	snapOID, err := snapshot.Create(context.Background(), store, now, snapshot.Input{
		Head:      oid.FromOID(head),
		IndexTree: treeHash(2),
		Stage1:    snapshot.Stage{Tree: treeHash(3)},
		Stage2:    snapshot.Stage{Tree: treeHash(4)},
	})
	require.NoError(t, err)

	restored, err := snapshot.Restore(context.Background(), store, snapOID)
	require.NoError(t, err)
	gotHead, err := restored.Head.ToOID()
	require.NoError(t, err)
	require.Equal(t, head, gotHead)
	require.Equal(t, treeHash(2), restored.IndexTree)
	require.Equal(t, treeHash(3), restored.Stage1.Tree)
	require.Equal(t, treeHash(4), restored.Stage2.Tree)
	require.Equal(t, plumbing.ZeroHash, restored.Stage3.Tree)
}

func TestRestoreMissingHeadReturnsNotFound(t *testing.T) {
	store := newFakeStore()
	now := time.Unix(6000, 0)

	// Build a head oid that is never actually written to the store.
	var phantom plumbing.Hash
	phantom[len(phantom)-1] = 0xEE
	phantomOID, err := oid.New(phantom)
	require.NoError(t, err)

	snapOID, err := snapshot.Create(context.Background(), store, now, snapshot.Input{
		Head:      oid.FromOID(phantomOID),
		IndexTree: treeHash(9),
	})
	require.NoError(t, err)

	_, err = snapshot.Restore(context.Background(), store, snapOID)
	require.Error(t, err)
	var notFound *snapshot.NotFound
	require.ErrorAs(t, err, &notFound)
}
