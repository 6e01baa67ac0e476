// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package vcs adapts the ambient object database, ref backend, and
// three-way merge engine into the single I/O seam the rewrite core talks
// to (spec.md §4.1, "C1"). Everything here is a thin wrapper: commit/tree
// lookup delegates to the teacher's backend.Database, ref resolution to
// its refs.Backend, and fast-path cherry-picking to its odb.ODB.MergeTree
// (the same three-way merge pkg/zeta/worktree_rebase.go's rebaseInternal
// drives, generalized from "replay one rebase" to "cherry-pick one commit
// onto an arbitrary destination tree").
package vcs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/modules/plumbing/filemode"
	"github.com/antgroup/hugescm/modules/zeta/backend"
	"github.com/antgroup/hugescm/modules/zeta/object"
	"github.com/antgroup/hugescm/modules/zeta/refs"
	"github.com/antgroup/hugescm/pkg/zeta/odb"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// ErrMergeCommitUnsupported is returned by CherryPickFast when asked to
// move a commit with more than one parent: the fast in-memory path only
// understands linear history, matching the resolved Open Question in
// SPEC_FULL.md ("merge commits fall back to the on-disk executor").
var ErrMergeCommitUnsupported = errors.New("vcs: cherry-picking a merge commit is not supported by the fast path")

// ErrNotACommit is returned by FindCommit/PeelToCommit when oid resolves
// to an object of a different kind.
var ErrNotACommit = errors.New("vcs: not a commit")

// MergeConflict is returned by CherryPickFast when the three-way merge
// produced at least one unresolved conflict; it carries the underlying
// odb.MergeResult so callers can render per-file conflict detail exactly
// the way the teacher's own merge command does.
type MergeConflict struct {
	Result *odb.MergeResult
}

func (e *MergeConflict) Error() string {
	return fmt.Sprintf("vcs: cherry-pick produced %d conflict(s)", len(e.Result.Conflicts))
}

// Adapter is the concrete C1 implementation: a thin seam over one
// repository's object database and reference backend.
type Adapter struct {
	db   *odb.ODB
	refs refs.Backend
}

// New builds an Adapter over an already-opened object database and
// reference backend (both owned by the caller).
func New(db *odb.ODB, refBackend refs.Backend) *Adapter {
	return &Adapter{db: db, refs: refBackend}
}

// FindCommit resolves o to a Commit, failing with ErrNotACommit if it
// names an object of a different kind.
func (a *Adapter) FindCommit(ctx context.Context, o oid.OID) (*object.Commit, error) {
	c, err := a.db.Commit(ctx, o.Hash())
	if backend.IsErrMismatchedObjectType(err) {
		return nil, fmt.Errorf("vcs: find commit %s: %w", o, ErrNotACommit)
	}
	if err != nil {
		return nil, fmt.Errorf("vcs: find commit %s: %w", o, err)
	}
	return c, nil
}

// FindTree resolves o to a Tree.
func (a *Adapter) FindTree(ctx context.Context, o oid.OID) (*object.Tree, error) {
	obj, err := a.db.Object(ctx, o.Hash())
	if err != nil {
		return nil, fmt.Errorf("vcs: find tree %s: %w", o, err)
	}
	t, ok := obj.(*object.Tree)
	if !ok {
		return nil, fmt.Errorf("vcs: %s: %w", o, ErrNotACommit)
	}
	return t, nil
}

// PeelToCommit resolves a reference name to the commit it (eventually)
// points at, following symbolic references via refs.ReferenceResolve.
func (a *Adapter) PeelToCommit(ctx context.Context, name plumbing.ReferenceName) (*object.Commit, error) {
	ref, err := refs.ReferenceResolve(a.refs, name)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve %s: %w", name, err)
	}
	h := ref.Hash()
	o, err := oid.New(h)
	if err != nil {
		return nil, fmt.Errorf("vcs: %s resolves to zero oid: %w", name, err)
	}
	return a.FindCommit(ctx, o)
}

// HeadInfo is the result of resolving HEAD: the branch it is attached to
// (empty when detached) and the commit it currently points at.
type HeadInfo struct {
	Branch plumbing.ReferenceName
	Commit oid.MaybeZero
}

// GetHeadInfo resolves the repository's current HEAD, distinguishing a
// branch-attached HEAD from a detached one.
func (a *Adapter) GetHeadInfo(ctx context.Context) (*HeadInfo, error) {
	head, err := a.refs.HEAD()
	if err != nil {
		return nil, fmt.Errorf("vcs: read HEAD: %w", err)
	}
	info := &HeadInfo{}
	if head.Type() == plumbing.SymbolicReference {
		info.Branch = head.Target()
	}
	resolved, err := refs.ReferenceResolve(a.refs, head.Name())
	if err != nil {
		// An unborn branch (no commits yet) resolves to nothing; that is
		// not an error at this layer.
		return info, nil
	}
	info.Commit = oid.FromHash(resolved.Hash())
	return info, nil
}

// Parents implements dagindex.Graph.
func (a *Adapter) Parents(ctx context.Context, o oid.OID) ([]oid.OID, error) {
	c, err := a.FindCommit(ctx, o)
	if err != nil {
		return nil, err
	}
	out := make([]oid.OID, 0, len(c.Parents))
	for _, p := range c.Parents {
		po, err := oid.New(p)
		if err != nil {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

// CommitTime implements dagindex.Graph.
func (a *Adapter) CommitTime(ctx context.Context, o oid.OID) (time.Time, error) {
	c, err := a.FindCommit(ctx, o)
	if err != nil {
		return time.Time{}, err
	}
	return c.Committer.When, nil
}

// CherryPickFast replays commit onto dest by three-way merging
// commit.Tree against dest's tree, using commit's own first parent's
// tree as the merge base — the same operation rebaseInternal performs
// commit-by-commit, here exposed as a single reusable step so the
// rebase executor (C7) can drive it per plan entry. Merge commits are
// rejected with ErrMergeCommitUnsupported; conflicts are reported, not
// resolved, via MergeConflict.
func (a *Adapter) CherryPickFast(ctx context.Context, commit *object.Commit, dest *object.Commit) (plumbing.Hash, error) {
	if len(commit.Parents) > 1 {
		return plumbing.ZeroHash, ErrMergeCommitUnsupported
	}
	destTree, err := dest.Root(ctx)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcs: read dest tree: %w", err)
	}
	commitTree, err := commit.Root(ctx)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcs: read commit tree: %w", err)
	}
	// reuse_parent_tree_if_possible: a root commit, or one whose tree is
	// unchanged from dest, needs no merge at all.
	if len(commit.Parents) == 0 || commitTree.Hash == destTree.Hash {
		return commitTree.Hash, nil
	}
	baseTree, err := a.firstParentTree(ctx, commit)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if baseTree.Hash == commitTree.Hash {
		// commit introduced no tree change relative to its own parent:
		// reuse dest's tree untouched.
		return destTree.Hash, nil
	}
	result, err := a.db.MergeTree(ctx, baseTree, commitTree, destTree, &odb.MergeOptions{
		Branch1: "theirs",
		Branch2: "ours",
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcs: cherry-pick merge: %w", err)
	}
	if len(result.Conflicts) > 0 {
		return plumbing.ZeroHash, &MergeConflict{Result: result}
	}
	return result.NewTree, nil
}

func (a *Adapter) firstParentTree(ctx context.Context, commit *object.Commit) (*object.Tree, error) {
	if len(commit.Parents) == 0 {
		return object.NewTree(nil), nil
	}
	parentOID, err := oid.New(commit.Parents[0])
	if err != nil {
		return nil, fmt.Errorf("vcs: commit %s has zero first parent: %w", commit.Hash, err)
	}
	parent, err := a.FindCommit(ctx, parentOID)
	if err != nil {
		return nil, err
	}
	return parent.Root(ctx)
}

// CreateCommit writes a new commit object whose tree is treeHash and
// whose parents are parents, in order, reusing author/message metadata
// supplied by the caller (typically copied from the commit being
// replayed). It does not touch any reference.
func (a *Adapter) CreateCommit(ctx context.Context, treeHash plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error) {
	c := &object.Commit{
		Author:    author,
		Committer: committer,
		Parents:   append([]plumbing.Hash{}, parents...),
		Tree:      treeHash,
		Message:   message,
	}
	h, err := a.db.WriteEncoded(c)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcs: write commit: %w", err)
	}
	return h, nil
}

// AmendFast rewrites commit in place with a new tree and/or message,
// keeping its parents and author identity, producing the successor
// commit used by a Rewrite event (spec.md §3). Either newTree or newMessage
// may be left as commit's existing value to amend just the other.
func (a *Adapter) AmendFast(ctx context.Context, commit *object.Commit, newTree plumbing.Hash, newMessage string) (plumbing.Hash, error) {
	return a.CreateCommit(ctx, newTree, commit.Parents, commit.Author, commit.Committer, newMessage)
}

// patchIDEntry is the normalized, order-independent unit PatchID hashes:
// path plus the (mode, content-hash) of each side, with zero values
// standing in for "absent" (insertion/deletion).
type patchIDEntry struct {
	path             string
	fromMode, toMode uint32
	fromHash, toHash plumbing.Hash
}

// PatchID computes a content-identity fingerprint for the tree-level
// change from base to commitTree: a hash of every changed path's
// (mode, blob-hash) pair on each side, sorted by path. Two cherry-picks
// of semantically identical changes onto different trees yield the same
// PatchID even though the resulting commits differ, which is what the
// duplicate-commit detector (spec.md §6, "Replace" constraints) needs.
// This is a deliberate simplification of git's line-level patch-id (which
// hashes normalized diff text): hashing the structured tree diff is
// simpler and exact for content-identical changes, at the cost of not
// collapsing patches that are textually different but semantically
// equivalent (e.g. differing only in context-line composition around a
// conflict) — acceptable here because in-memory cherry-picks under this
// executor never produce context-line differences to begin with.
func PatchID(ctx context.Context, base, commitTree *object.Tree) (string, error) {
	changes, err := base.DiffContext(ctx, commitTree, nil)
	if err != nil {
		return "", fmt.Errorf("vcs: diff for patch id: %w", err)
	}
	entries := make([]patchIDEntry, 0, len(changes))
	for _, ch := range changes {
		e := patchIDEntry{path: ch.Name()}
		if ch.From.Tree != nil || ch.From.TreeEntry.Hash != plumbing.ZeroHash {
			e.fromMode = uint32(ch.From.TreeEntry.Mode)
			e.fromHash = ch.From.TreeEntry.Hash
		}
		if ch.To.Tree != nil || ch.To.TreeEntry.Hash != plumbing.ZeroHash {
			e.toMode = uint32(ch.To.TreeEntry.Mode)
			e.toHash = ch.To.TreeEntry.Hash
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	h := blake3.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%d\x00%s\x00%d\x00%s\x00", e.path, e.fromMode, e.fromHash, e.toMode, e.toHash)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// TreeUpdate describes one path's desired state when hydrating a base
// tree into a new one: Delete removes the path entirely, otherwise
// Hash/Mode insert or replace its tree entry.
type TreeUpdate struct {
	Hash   plumbing.Hash
	Mode   filemode.FileMode
	Delete bool
}

// HydrateTree rebuilds base (nil means an empty tree) with updates
// applied, writing every touched tree level to the object database and
// returning the new root tree hash. This is the index-to-tree half of
// the C1 I/O seam spec.md §4.1 describes: the index names paths by flat
// string key, but the object database only understands trees of trees,
// the same translation pkg/zeta/odb's treeMaker performs for a real
// checkout (pkg/zeta/odb/tree.go's copyTreeToStorageRecursive).
func (a *Adapter) HydrateTree(ctx context.Context, base *object.Tree, updates map[string]TreeUpdate) (plumbing.Hash, error) {
	t, err := a.hydrateTree(ctx, base, updates)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return a.writeTreeIfNeeded(t)
}

func (a *Adapter) hydrateTree(ctx context.Context, base *object.Tree, updates map[string]TreeUpdate) (*object.Tree, error) {
	if base == nil {
		base = object.NewTree(nil)
	}
	if len(updates) == 0 {
		return base, nil
	}
	direct, nested := splitUpdates(updates)

	byName := make(map[string]*object.TreeEntry, len(base.Entries)+len(direct))
	for _, e := range base.Entries {
		byName[e.Name] = e
	}
	for name, u := range direct {
		if u.Delete {
			delete(byName, name)
			continue
		}
		byName[name] = &object.TreeEntry{Name: name, Mode: u.Mode, Hash: u.Hash}
	}
	for name, sub := range nested {
		var subBase *object.Tree
		if e, ok := byName[name]; ok && e.Mode == filemode.Dir {
			existing, err := a.db.Tree(ctx, e.Hash)
			if err != nil {
				return nil, fmt.Errorf("vcs: hydrate: read existing subtree %s: %w", name, err)
			}
			subBase = existing
		}
		newSub, err := a.hydrateTree(ctx, subBase, sub)
		if err != nil {
			return nil, err
		}
		if len(newSub.Entries) == 0 {
			delete(byName, name)
			continue
		}
		newSubHash, err := a.writeTreeIfNeeded(newSub)
		if err != nil {
			return nil, fmt.Errorf("vcs: hydrate: write subtree %s: %w", name, err)
		}
		byName[name] = &object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: newSubHash}
	}

	entries := make([]*object.TreeEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sort.Sort(object.SubtreeOrder(entries))
	return object.NewTree(entries), nil
}

func (a *Adapter) writeTreeIfNeeded(t *object.Tree) (plumbing.Hash, error) {
	if t.Hash != plumbing.ZeroHash {
		return t.Hash, nil
	}
	h, err := a.db.WriteEncoded(t)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return h, nil
}

// splitUpdates partitions updates into paths touching this tree level
// directly and paths nested under an immediate subdirectory, keyed by
// that subdirectory's name with the matched prefix stripped.
func splitUpdates(updates map[string]TreeUpdate) (direct map[string]TreeUpdate, nested map[string]map[string]TreeUpdate) {
	direct = make(map[string]TreeUpdate)
	nested = make(map[string]map[string]TreeUpdate)
	for p, u := range updates {
		name, rest, isNested := strings.Cut(p, "/")
		if !isNested {
			direct[name] = u
			continue
		}
		if nested[name] == nil {
			nested[name] = make(map[string]TreeUpdate)
		}
		nested[name][rest] = u
	}
	return direct, nested
}

// DehydrateTree is HydrateTree's dual: it reads the current (mode, hash)
// of each of paths out of tree, reporting an absent path as
// TreeUpdate{Delete: true}. Callers use it to capture a tree's state at a
// fixed set of paths in the flat-map form HydrateTree re-applies, e.g.
// restoring a snapshot's captured stage back onto the working copy.
func (a *Adapter) DehydrateTree(ctx context.Context, tree *object.Tree, paths []string) (map[string]TreeUpdate, error) {
	updates := make(map[string]TreeUpdate, len(paths))
	for _, p := range paths {
		e, err := tree.FindEntry(ctx, p)
		switch {
		case err == nil:
			updates[p] = TreeUpdate{Hash: e.Hash, Mode: e.Mode}
		case object.IsErrEntryNotFound(err), object.IsErrDirectoryNotFound(err):
			updates[p] = TreeUpdate{Delete: true}
		default:
			return nil, fmt.Errorf("vcs: dehydrate: find entry %s: %w", p, err)
		}
	}
	return updates, nil
}

// IndexEntry is one path's state in the abstract index this package
// works with: stage 0 is the normal, conflict-free entry, and stages 1-3
// (ancestor/ours/theirs) exist only while the path has an unresolved
// merge conflict. This mirrors the conflict stages the real on-disk index
// format (modules/plumbing/format/index) carries, without this package
// depending on that format directly — the retrieval pack does not carry
// its implementation (see DESIGN.md).
type IndexEntry struct {
	Path  string
	Stage int
	Mode  filemode.FileMode
	Hash  plumbing.Hash
}

type indexKey struct {
	path  string
	stage int
}

// Index is a flat, in-memory stand-in for the working copy's real index:
// an unordered set of IndexEntry values keyed by (path, stage).
type Index struct {
	entries map[indexKey]IndexEntry
}

// NewIndex builds an Index from an explicit entry set, typically decoded
// from the real on-disk index by the caller.
func NewIndex(entries []IndexEntry) *Index {
	idx := &Index{entries: make(map[indexKey]IndexEntry, len(entries))}
	for _, e := range entries {
		idx.entries[indexKey{e.Path, e.Stage}] = e
	}
	return idx
}

// Entries returns every entry currently recorded, in no particular order.
func (idx *Index) Entries() []IndexEntry {
	out := make([]IndexEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	return out
}

// SetStageEntry is the low-level index-stage-update primitive spec.md
// §4.1 calls for: it records (or overwrites) path's entry at stage. Every
// higher-level index mutation — staging a file, resolving one side of a
// conflict — reduces to a sequence of SetStageEntry/RemoveStageEntry
// calls.
func (idx *Index) SetStageEntry(path string, stage int, mode filemode.FileMode, hash plumbing.Hash) {
	idx.entries[indexKey{path, stage}] = IndexEntry{Path: path, Stage: stage, Mode: mode, Hash: hash}
}

// RemoveStageEntry deletes path's entry at stage, if present: removing
// stage 0 untracks the path, removing stages 1-3 marks that side of a
// conflict resolved.
func (idx *Index) RemoveStageEntry(path string, stage int) {
	delete(idx.entries, indexKey{path, stage})
}

// StatusCode mirrors the teacher's pkg/zeta/status.go status codes for
// the subset this package can determine without the real working copy:
// a path's state in the index relative to HEAD. Worktree-vs-index
// comparison needs the filesystem and is the caller's job, consistent
// with spec.md §1's "not a working copy implementation" non-goal.
type StatusCode byte

const (
	StatusUnmodified StatusCode = ' '
	StatusAdded      StatusCode = 'A'
	StatusModified   StatusCode = 'M'
	StatusDeleted    StatusCode = 'D'
)

// StatusEntry is one path's staged (index-vs-HEAD) status.
type StatusEntry struct {
	Path    string
	Staging StatusCode
}

// StatusSnapshot is the materialized, tree-per-stage form of an Index,
// shaped exactly like snapshot.Input so a caller about to perform a
// destructive checkout can hand it straight to snapshot.Create (spec.md
// §4.5/§8's invariant that such a checkout always snapshots first).
type StatusSnapshot struct {
	Head      oid.MaybeZero
	IndexTree plumbing.Hash
	Stage1    plumbing.Hash
	Stage2    plumbing.Hash
	Stage3    plumbing.Hash
}

// GetStatus hydrates idx's stage-0 entries into a tree and diffs it
// against head's tree to report each path's staged status, and
// separately hydrates any stage 1-3 entries (an unresolved conflict) into
// their own trees. It is the one place in this package that turns the
// working copy's abstract index into the concrete trees both `status`
// output and a pre-checkout snapshot need (spec.md §4.1's
// get_status(index, head) -> (snapshot, entries[])).
func (a *Adapter) GetStatus(ctx context.Context, idx *Index, head oid.MaybeZero) (*StatusSnapshot, []StatusEntry, error) {
	byStage := map[int]map[string]TreeUpdate{0: {}, 1: {}, 2: {}, 3: {}}
	for _, e := range idx.Entries() {
		byStage[e.Stage][e.Path] = TreeUpdate{Hash: e.Hash, Mode: e.Mode}
	}

	indexTreeHash, err := a.HydrateTree(ctx, nil, byStage[0])
	if err != nil {
		return nil, nil, fmt.Errorf("vcs: get status: hydrate index tree: %w", err)
	}
	snap := &StatusSnapshot{Head: head, IndexTree: indexTreeHash}
	stageTargets := map[int]*plumbing.Hash{1: &snap.Stage1, 2: &snap.Stage2, 3: &snap.Stage3}
	for stage, target := range stageTargets {
		if len(byStage[stage]) == 0 {
			continue
		}
		h, err := a.HydrateTree(ctx, nil, byStage[stage])
		if err != nil {
			return nil, nil, fmt.Errorf("vcs: get status: hydrate stage %d tree: %w", stage, err)
		}
		*target = h
	}

	headTree := object.NewTree(nil)
	if headOID, err := head.ToOID(); err == nil {
		headCommit, err := a.FindCommit(ctx, headOID)
		if err != nil {
			return nil, nil, fmt.Errorf("vcs: get status: find head commit: %w", err)
		}
		if headTree, err = headCommit.Root(ctx); err != nil {
			return nil, nil, fmt.Errorf("vcs: get status: read head tree: %w", err)
		}
	}

	indexOID, err := oid.New(indexTreeHash)
	if err != nil {
		return nil, nil, fmt.Errorf("vcs: get status: index tree hashed to zero: %w", err)
	}
	indexTree, err := a.FindTree(ctx, indexOID)
	if err != nil {
		return nil, nil, fmt.Errorf("vcs: get status: read index tree: %w", err)
	}
	changes, err := headTree.DiffContext(ctx, indexTree, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("vcs: get status: diff head against index: %w", err)
	}
	entries := make([]StatusEntry, 0, len(changes))
	for _, ch := range changes {
		fromPresent := ch.From.Tree != nil || ch.From.TreeEntry.Hash != plumbing.ZeroHash
		toPresent := ch.To.Tree != nil || ch.To.TreeEntry.Hash != plumbing.ZeroHash
		code := StatusModified
		switch {
		case !fromPresent && toPresent:
			code = StatusAdded
		case fromPresent && !toPresent:
			code = StatusDeleted
		}
		entries = append(entries, StatusEntry{Path: ch.Name(), Staging: code})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return snap, entries, nil
}
