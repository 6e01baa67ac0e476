// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package executor_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/object"

	"github.com/antgroup/zeta-branchless/modules/zetabl/executor"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/rebaseplan"
)

// fakeVCS is a minimal commit store: every commit has tree == its own
// hash (so CherryPickFast trivially "merges" by just taking the source
// commit's tree), letting tests exercise the executor's Label/Reset and
// memoization bookkeeping without a real merge engine.
type fakeVCS struct {
	next    byte
	commits map[plumbing.Hash]*object.Commit
	merges  int
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{commits: make(map[plumbing.Hash]*object.Commit)}
}

func (f *fakeVCS) addRoot() oid.OID {
	f.next++
	var h plumbing.Hash
	h[len(h)-1] = f.next
	f.commits[h] = &object.Commit{Hash: h, Tree: h, Message: fmt.Sprintf("commit %d", f.next)}
	o, _ := oid.New(h)
	return o
}

func (f *fakeVCS) FindCommit(_ context.Context, o oid.OID) (*object.Commit, error) {
	c, ok := f.commits[o.Hash()]
	if !ok {
		return nil, plumbing.NewErrRevNotFound("not found")
	}
	return c, nil
}

func (f *fakeVCS) CherryPickFast(_ context.Context, commit, dest *object.Commit) (plumbing.Hash, error) {
	f.merges++
	return commit.Tree, nil
}

func (f *fakeVCS) CreateCommit(_ context.Context, tree plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error) {
	f.next++
	var h plumbing.Hash
	h[len(h)-1] = f.next
	f.commits[h] = &object.Commit{Hash: h, Tree: tree, Parents: parents, Message: message}
	return h, nil
}

func TestRunAppliesPicksSequentially(t *testing.T) {
	vcs := newFakeVCS()
	dest := vcs.addRoot()
	a := vcs.addRoot()
	b := vcs.addRoot()

	plan := &rebaseplan.Plan{Steps: []rebaseplan.Step{
		{Kind: rebaseplan.StepPick, OID: a},
		{Kind: rebaseplan.StepPick, OID: b},
	}}

	exec, err := executor.NewMemoryExecutor(vcs, nil, 1, false)
	require.NoError(t, err)
	result, err := exec.Run(context.Background(), plan, dest)
	require.NoError(t, err)
	require.NotEqual(t, dest, result.Tip)
	require.Empty(t, result.Conflicts)
	require.Equal(t, 2, vcs.merges)
}

func TestRunHonorsLabelAndReset(t *testing.T) {
	vcs := newFakeVCS()
	dest := vcs.addRoot()
	a := vcs.addRoot()
	b := vcs.addRoot()

	plan := &rebaseplan.Plan{Steps: []rebaseplan.Step{
		{Kind: rebaseplan.StepPick, OID: a},
		{Kind: rebaseplan.StepLabel, Label: "L1"},
		{Kind: rebaseplan.StepPick, OID: b},
		{Kind: rebaseplan.StepReset, Target: rebaseplan.Position{Label: "L1"}},
	}}

	exec, err := executor.NewMemoryExecutor(vcs, nil, 1, false)
	require.NoError(t, err)
	result, err := exec.Run(context.Background(), plan, dest)
	require.NoError(t, err)
	// After the trailing Reset, the tip must be back at the commit
	// produced by picking a, not the one produced by picking b.
	aCommit, err := vcs.FindCommit(context.Background(), result.Tip)
	require.NoError(t, err)
	require.Len(t, aCommit.Parents, 1)
	require.Equal(t, dest.Hash(), aCommit.Parents[0])
}
