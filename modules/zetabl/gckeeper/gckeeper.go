// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package gckeeper synthesizes the hidden references that keep the
// ambient VCS's own garbage collector from pruning commits this rewrite
// core still considers logically live (spec.md §4.10, "C10"). It mirrors
// the teacher's own reference backend usage (modules/zeta/refs.Backend,
// as driven by pkg/zeta/gc.go's Gc) rather than reimplementing ref
// storage: a hidden ref is just an ordinary plumbing.Reference under a
// reserved namespace.
package gckeeper

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/refs"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/replay"
)

// Prefix is the hidden-ref namespace spec.md §6 names: one ref per kept
// commit, never pushed, target equal to the commit's own oid.
const Prefix = "refs/branchless/"

// RefName returns the hidden reference name for o.
func RefName(o oid.OID) plumbing.ReferenceName {
	return plumbing.ReferenceName(Prefix + o.String())
}

// IsHiddenRef reports whether name is in the GC-keeper's own namespace;
// the event-log invariant (spec.md §3) is that RefUpdate events for such
// refs are never recorded, since they are bookkeeping, not user-visible
// ref history.
func IsHiddenRef(name plumbing.ReferenceName) bool {
	return strings.HasPrefix(string(name), Prefix)
}

// oidFromRefName extracts the commit oid a hidden ref names, or false if
// name is not a well-formed hidden ref.
func oidFromRefName(name plumbing.ReferenceName) (oid.OID, bool) {
	if !IsHiddenRef(name) {
		return oid.OID{}, false
	}
	h := plumbing.NewHash(strings.TrimPrefix(string(name), Prefix))
	o, err := oid.New(h)
	if err != nil {
		return oid.OID{}, false
	}
	return o, true
}

// Keeper owns the hidden-ref namespace for one repository's reference
// backend.
type Keeper struct {
	refs refs.Backend
}

// New builds a Keeper over an already-opened reference backend.
func New(refBackend refs.Backend) *Keeper {
	return &Keeper{refs: refBackend}
}

// Keep ensures a hidden ref exists for o, creating it if absent. It is
// called for every newly observed commit (post-commit hook, executor
// commit-writing step) so the commit survives until the replayer later
// judges it Obsolete.
func (k *Keeper) Keep(o oid.OID) error {
	name := RefName(o)
	existing, err := k.refs.Reference(name)
	if err == nil && existing != nil && existing.Hash() == o.Hash() {
		return nil
	}
	if err := k.refs.ReferenceUpdate(plumbing.NewHashReference(name, o.Hash()), nil); err != nil {
		return fmt.Errorf("gckeeper: keep %s: %w", o, err)
	}
	return nil
}

// SweepResult reports what a sweep did, for callers that want to log or
// display it (e.g. a verbose `gc` command).
type SweepResult struct {
	Kept    int
	Removed []oid.OID
}

// Sweep enumerates every hidden ref and removes the ones whose commit is
// Obsolete at the replayer's default cursor. A ref whose commit is
// Active, or merely Inactive (never explicitly obsoleted — e.g. it
// predates the event log, or was created outside this tool), is never
// removed: spec.md §4.10 only authorizes deleting refs for commits the
// user explicitly obsoleted.
func (k *Keeper) Sweep(r *replay.Replayer) (*SweepResult, error) {
	db, err := k.refs.References()
	if err != nil {
		return nil, fmt.Errorf("gckeeper: list references: %w", err)
	}
	cursor := r.MakeDefaultCursor()
	result := &SweepResult{}
	for _, ref := range db.References() {
		o, ok := oidFromRefName(ref.Name())
		if !ok {
			continue
		}
		status := r.GetCursorCommitActivityStatus(cursor, o)
		if status != replay.Obsolete {
			result.Kept++
			continue
		}
		if err := k.refs.ReferenceRemove(ref); err != nil {
			logrus.WithError(err).WithField("commit", o).Warn("gckeeper: failed to remove hidden ref for obsolete commit")
			continue
		}
		result.Removed = append(result.Removed, o)
	}
	logrus.WithField("kept", result.Kept).WithField("removed", len(result.Removed)).Debug("gckeeper: sweep complete")
	return result, nil
}
