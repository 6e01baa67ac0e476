// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package workingcopy is the one production caller of
// pkg/zetabl/vcs.Adapter's index/status operations (HydrateTree,
// GetStatus): it reads the ambient VCS's real on-disk index
// (pkg/zeta/odb.ODB.Index, backed by modules/plumbing/format/index) and
// turns it into the abstract vcs.Index that GetStatus hydrates into
// trees, giving modules/zetabl/executor.DiskExecutor something real to
// snapshot before a destructive checkout (spec.md §4.5/§8's "any
// check-out that would overwrite uncommitted work first creates a
// snapshot").
package workingcopy

import (
	"context"
	"fmt"

	"github.com/antgroup/hugescm/pkg/zeta"

	"github.com/antgroup/zeta-branchless/modules/zetabl/executor"
	"github.com/antgroup/zeta-branchless/pkg/zetabl/vcs"
)

// Reader adapts one repository's real working copy into
// executor.WorkingCopyReader.
type Reader struct {
	worktree *zeta.Worktree
	adapter  *vcs.Adapter
}

// New builds a Reader over an already-open worktree and the C1 adapter
// for the same repository.
func New(worktree *zeta.Worktree, adapter *vcs.Adapter) *Reader {
	return &Reader{worktree: worktree, adapter: adapter}
}

// GetWorkingCopyStatus implements executor.WorkingCopyReader: it decodes
// the real index, hydrates its (single-stage; this VCS's index carries no
// conflict stages of its own — see DESIGN.md) entries into a tree via
// vcs.Adapter.GetStatus, and reports the repository's current HEAD
// alongside it.
func (r *Reader) GetWorkingCopyStatus(ctx context.Context) (*executor.WorkingCopyStatus, error) {
	idx, err := r.worktree.ODB().Index()
	if err != nil {
		return nil, fmt.Errorf("workingcopy: read index: %w", err)
	}
	entries := make([]vcs.IndexEntry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		entries = append(entries, vcs.IndexEntry{Path: e.Name, Stage: 0, Mode: e.Mode, Hash: e.Hash})
	}
	info, err := r.adapter.GetHeadInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("workingcopy: read HEAD: %w", err)
	}
	snap, _, err := r.adapter.GetStatus(ctx, vcs.NewIndex(entries), info.Commit)
	if err != nil {
		return nil, fmt.Errorf("workingcopy: get status: %w", err)
	}
	return &executor.WorkingCopyStatus{
		Head:      snap.Head,
		IndexTree: snap.IndexTree,
		Stage1:    snap.Stage1,
		Stage2:    snap.Stage2,
		Stage3:    snap.Stage3,
	}, nil
}
