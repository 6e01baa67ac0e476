// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package snapshot captures and restores working-copy state as ordinary
// commits (spec.md §4.5, "C5"): a snapshot is a real commit in the object
// database, reachable only through the GC-keeper's hidden refs, so it
// survives as long as anything points at it and is collected like any
// other unreferenced commit once nothing does.
//
// The four "stage" trees mirror the working copy's index stages (stage 0:
// the normal index entry, stages 1-3: ancestor/ours/theirs sides of an
// unresolved conflict) the teacher's checkoutConflicts machinery
// already threads through pkg/zeta/worktree_rebase.go's REBASE-MD
// handling; recording each stage as its own throwaway commit (rather than
// a single tree with synthetic conflict markers) lets a restore recreate
// an in-progress conflict byte-for-byte.
package snapshot

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/zeta/object"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

const trailerPrefix = "Branchless-stage-"

// commitWriter is the subset of pkg/zetabl/vcs.Adapter this package needs;
// expressed as an interface so tests can supply a fake.
type commitWriter interface {
	CreateCommit(ctx context.Context, treeHash plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error)
}

type commitReader interface {
	FindCommit(ctx context.Context, o oid.OID) (*object.Commit, error)
}

// NotFound is returned by Restore when the snapshot's recorded HEAD oid
// no longer resolves to a reachable commit. Per the resolved Open
// Question (spec.md §9 / SPEC_FULL.md "Supplemented features"),
// restoration is all-or-nothing: a snapshot whose HEAD vanished is
// reported, never silently discarded or redirected to a guessed HEAD.
type NotFound struct {
	OID oid.MaybeZero
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("snapshot: head commit %s not found", e.OID)
}

// Stage holds one conflict-stage tree, or the zero value when that stage
// is absent (clean working copies have no stage 1-3 at all).
type Stage struct {
	Tree plumbing.Hash
}

func (s Stage) present() bool { return s.Tree != plumbing.ZeroHash }

// Input is everything Create needs to capture: the current HEAD (zero on
// an unborn branch), the index tree, and up to three unmerged conflict
// stage trees.
type Input struct {
	Head        oid.MaybeZero
	IndexTree   plumbing.Hash
	Stage1      Stage // ancestor
	Stage2      Stage // ours
	Stage3      Stage // theirs
	Committer   object.Signature
	Description string
}

// Snapshot is a decoded working-copy snapshot commit.
type Snapshot struct {
	CommitOID oid.OID
	Head      oid.MaybeZero
	IndexTree plumbing.Hash
	Stage1    Stage
	Stage2    Stage
	Stage3    Stage
}

// Create writes the stage commits plus the base snapshot commit
// described by in, returning the base snapshot commit's oid. Each
// nonzero stage tree becomes its own parentless commit so that it is
// independently reachable from the snapshot commit's parent list; the
// snapshot commit's message carries a Branchless-stage-N trailer per
// present stage recording which parent index corresponds to which
// stage, plus the captured HEAD oid.
func Create(ctx context.Context, w commitWriter, now time.Time, in Input) (oid.OID, error) {
	var parents []plumbing.Hash
	var trailers []string

	if headOID, err := in.Head.ToOID(); err == nil {
		parents = append(parents, headOID.Hash())
		trailers = append(trailers, fmt.Sprintf("%shead: %s", trailerPrefix, headOID))
	}

	indexCommit, err := w.CreateCommit(ctx, in.IndexTree, nil, in.Committer, in.Committer, "branchless snapshot: index")
	if err != nil {
		return oid.OID{}, fmt.Errorf("snapshot: write index stage: %w", err)
	}
	parents = append(parents, indexCommit)
	trailers = append(trailers, fmt.Sprintf("%sindex: %d", trailerPrefix, len(parents)-1))

	for i, st := range []Stage{in.Stage1, in.Stage2, in.Stage3} {
		if !st.present() {
			continue
		}
		c, err := w.CreateCommit(ctx, st.Tree, nil, in.Committer, in.Committer, fmt.Sprintf("branchless snapshot: stage %d", i+1))
		if err != nil {
			return oid.OID{}, fmt.Errorf("snapshot: write stage %d: %w", i+1, err)
		}
		parents = append(parents, c)
		trailers = append(trailers, fmt.Sprintf("%s%d: %d", trailerPrefix, i+1, len(parents)-1))
	}

	message := buildMessage(in.Description, now, trailers)
	h, err := w.CreateCommit(ctx, in.IndexTree, parents, in.Committer, in.Committer, message)
	if err != nil {
		return oid.OID{}, fmt.Errorf("snapshot: write snapshot commit: %w", err)
	}
	return oid.New(h)
}

func buildMessage(description string, now time.Time, trailers []string) string {
	var b strings.Builder
	if description == "" {
		description = "working copy snapshot"
	}
	b.WriteString(description)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Branchless-snapshot-time: %d\n", now.Unix()))
	for _, t := range trailers {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return b.String()
}

// Restore decodes the snapshot commit at snapshotOID, resolving its
// stage commits back into a Snapshot. It returns NotFound if the
// recorded HEAD oid does not resolve to a commit currently in the
// object database.
func Restore(ctx context.Context, r commitReader, snapshotOID oid.OID) (*Snapshot, error) {
	c, err := r.FindCommit(ctx, snapshotOID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read snapshot commit %s: %w", snapshotOID, err)
	}
	trailers, headText := parseTrailers(c.Message)

	out := &Snapshot{CommitOID: snapshotOID, IndexTree: c.Tree}
	if headText != "" {
		h, err := oid.New(plumbing.NewHash(headText))
		if err != nil {
			return nil, fmt.Errorf("snapshot: decode recorded head %q: %w", headText, err)
		}
		if _, err := r.FindCommit(ctx, h); err != nil {
			return nil, &NotFound{OID: oid.FromOID(h)}
		}
		out.Head = oid.FromOID(h)
	}

	stageTree := func(parentIdx int) (plumbing.Hash, error) {
		if parentIdx < 0 || parentIdx >= len(c.Parents) {
			return plumbing.ZeroHash, fmt.Errorf("snapshot: trailer references out-of-range parent %d", parentIdx)
		}
		parentOID, err := oid.New(c.Parents[parentIdx])
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("snapshot: parent %d is zero: %w", parentIdx, err)
		}
		stageCommit, err := r.FindCommit(ctx, parentOID)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("snapshot: read stage commit: %w", err)
		}
		return stageCommit.Tree, nil
	}

	for key, idxText := range trailers {
		idx, err := strconv.Atoi(idxText)
		if err != nil {
			continue
		}
		tree, err := stageTree(idx)
		if err != nil {
			return nil, err
		}
		switch key {
		case "index":
			out.IndexTree = tree
		case "1":
			out.Stage1 = Stage{Tree: tree}
		case "2":
			out.Stage2 = Stage{Tree: tree}
		case "3":
			out.Stage3 = Stage{Tree: tree}
		}
	}
	return out, nil
}

// parseTrailers extracts every "Branchless-stage-<key>: <value>" line from
// message, along with the head oid text recorded by the "head" trailer.
func parseTrailers(message string) (map[string]string, string) {
	trailers := make(map[string]string)
	var head string
	sc := bufio.NewScanner(strings.NewReader(message))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, trailerPrefix) {
			continue
		}
		rest := strings.TrimPrefix(line, trailerPrefix)
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "head" {
			head = val
			continue
		}
		trailers[key] = val
	}
	return trailers, head
}
