// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/object"

	"github.com/antgroup/zeta-branchless/modules/zetabl/executor"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/rebaseplan"
)

// conflictingVCS behaves like fakeVCS except CherryPickFast refuses to
// merge a designated commit, mimicking a real conflicting cherry-pick.
type conflictingVCS struct {
	*fakeVCS
	conflictOn plumbing.Hash
}

func (f *conflictingVCS) CherryPickFast(ctx context.Context, commit, dest *object.Commit) (plumbing.Hash, error) {
	if commit.Hash == f.conflictOn {
		return plumbing.ZeroHash, errors.New("merge conflict")
	}
	return f.fakeVCS.CherryPickFast(ctx, commit, dest)
}

// fakeDriver is a WorktreeDriver that records checkouts and, once told a
// resolution is ready, hands back a synthetic resolved commit.
type fakeDriver struct {
	vcs          *conflictingVCS
	checkedOut   bool
	resolvedTree plumbing.Hash
}

func (d *fakeDriver) CheckoutCommit(ctx context.Context, commit oid.OID) error { return nil }

func (d *fakeDriver) CheckoutConflicted(ctx context.Context, onto, last oid.OID, mergeTree plumbing.Hash) error {
	d.checkedOut = true
	return nil
}

func (d *fakeDriver) CommitResolution(ctx context.Context) (oid.OID, error) {
	h, err := d.vcs.CreateCommit(ctx, d.resolvedTree, nil, object.Signature{}, object.Signature{}, "resolved")
	if err != nil {
		return oid.OID{}, err
	}
	return oid.New(h)
}

func TestDiskExecutorStopsForConflictAndResumes(t *testing.T) {
	base := newFakeVCS()
	dest := base.addRoot()
	a := base.addRoot()
	b := base.addRoot()

	aCommit, err := base.FindCommit(context.Background(), a)
	require.NoError(t, err)
	vcs := &conflictingVCS{fakeVCS: base, conflictOn: aCommit.Hash}

	plan := &rebaseplan.Plan{Steps: []rebaseplan.Step{
		{Kind: rebaseplan.StepPick, OID: a},
		{Kind: rebaseplan.StepPick, OID: b},
	}}

	mem, err := executor.NewMemoryExecutor(vcs, nil, 1, false)
	require.NoError(t, err)
	driver := &fakeDriver{vcs: vcs}
	disk := executor.NewDiskExecutor(mem, driver, t.TempDir())

	result, err := disk.Run(context.Background(), plan, dest)
	require.Nil(t, result)
	var stopped *executor.ErrStoppedForConflict
	require.ErrorAs(t, err, &stopped)
	require.Len(t, stopped.Conflicts, 1)
	require.Equal(t, a, stopped.Conflicts[0].OID)
	require.True(t, driver.checkedOut)

	persisted, err := disk.ReadState()
	require.NoError(t, err)
	require.Equal(t, 0, persisted.StepIndex)

	// Resolve: the driver's CommitResolution manufactures the commit that
	// finishes step 0, then Resume re-enters the in-memory path for step 1.
	driver.resolvedTree = vcs.fakeVCS.commits[dest.Hash()].Tree
	result, err = disk.Resume(context.Background(), plan)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	_, err = disk.ReadState()
	require.Error(t, err, "a successful Resume must clear the persisted sequencer state")
}

func TestSequencerStateRoundTripsThroughTOML(t *testing.T) {
	base := newFakeVCS()
	dest := base.addRoot()
	mem, err := executor.NewMemoryExecutor(base, nil, 1, false)
	require.NoError(t, err)
	driver := &fakeDriver{vcs: &conflictingVCS{fakeVCS: base}}
	disk := executor.NewDiskExecutor(mem, driver, t.TempDir())

	_, err = disk.ReadState()
	require.Error(t, err, "no state should be present before any conflict")

	a := base.addRoot()
	aCommit, err := base.FindCommit(context.Background(), a)
	require.NoError(t, err)
	driver.vcs.conflictOn = aCommit.Hash
	mem2, err := executor.NewMemoryExecutor(driver.vcs, nil, 1, false)
	require.NoError(t, err)
	disk2 := executor.NewDiskExecutor(mem2, driver, t.TempDir())
	plan := &rebaseplan.Plan{Steps: []rebaseplan.Step{{Kind: rebaseplan.StepPick, OID: a}}}
	_, err = disk2.Run(context.Background(), plan, dest)
	require.Error(t, err)

	state, err := disk2.ReadState()
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("%s", dest.Hash()), fmt.Sprintf("%s", state.Onto))

	require.NoError(t, disk2.Abort())
	_, err = disk2.ReadState()
	require.Error(t, err)
}
