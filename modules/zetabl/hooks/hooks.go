// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package hooks implements the five rewrite-hook entry points the
// ambient VCS invokes as separate child processes (spec.md §4.9, "C9"):
// reference-transaction, post-commit, post-rewrite, post-checkout, and
// pre-auto-gc. Each hook's job is narrow — turn one VCS-native
// notification into event-log writes and, for post-rewrite, an
// abandonment check — so this package has no long-lived state of its
// own; a Hooks value is built fresh per invocation the way the teacher
// builds a fresh Repository per command (pkg/zeta/repository.go).
package hooks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/antgroup/hugescm/modules/plumbing"

	"github.com/antgroup/zeta-branchless/modules/zetabl/dagindex"
	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/eventlog"
	"github.com/antgroup/zeta-branchless/modules/zetabl/gckeeper"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/replay"
)

// TransactionIDEnv is the environment variable hooks consult so that
// every hook invoked for one logical user command shares a single
// transaction id (spec.md §6): the top-level command sets it before
// invoking the VCS, and the VCS's child hook processes inherit it.
const TransactionIDEnv = "BRANCHLESS_TRANSACTION_ID"

// RefIgnoreList names refs that never produce a RefUpdate event even
// though they are not in the GC-keeper's own hidden-ref namespace —
// spec.md §3's "a ref whose name is on an ignore list (e.g. auto-merge
// head) produces no event".
var RefIgnoreList = map[plumbing.ReferenceName]bool{
	"MERGE_HEAD":       true,
	"CHERRY_PICK_HEAD": true,
	"ORIG_HEAD":        true,
}

// Hooks bundles the dependencies every hook entry point needs: the
// durable event log to append to, and the GC keeper to update alongside
// it. Neither is owned by this package — both are opened once per
// command invocation by the caller (the hook-dispatching binary).
type Hooks struct {
	Log    *eventlog.Log
	Keeper *gckeeper.Keeper
	Now    func() time.Time
}

func (h *Hooks) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// transactionID resolves the shared transaction id from the environment,
// allocating a fresh one (and persisting its association) if unset, per
// spec.md §4.9's "if unset, they allocate a fresh one".
func (h *Hooks) transactionID(message string) (event.TxID, error) {
	if raw, ok := os.LookupEnv(TransactionIDEnv); ok {
		var id int64
		if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
			return event.TxID(id), nil
		}
		logrus.WithField("raw", raw).Warn("hooks: unparsable BRANCHLESS_TRANSACTION_ID, allocating fresh id")
	}
	return h.Log.MakeTransactionID(h.now(), message)
}

// refTransactionLine is one "<old> <new> <ref>" line read from the
// reference-transaction hook's standard input.
type refTransactionLine struct {
	Old, New plumbing.ReferenceName
	Ref      plumbing.ReferenceName
}

// ReferenceTransaction implements the reference-transaction hook: for
// every ref update line on r, append a RefUpdate event, except when the
// ref is in the GC-keeper's hidden-ref namespace or on RefIgnoreList
// (spec.md §3's invariant, §4.9's "reference-transaction" entry point).
func (h *Hooks) ReferenceTransaction(ctx context.Context, r io.Reader) error {
	var evs []event.Event
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		refName := plumbing.ReferenceName(fields[2])
		if gckeeper.IsHiddenRef(refName) || RefIgnoreList[refName] {
			continue
		}
		oldHash := plumbing.NewHash(fields[0])
		newHash := plumbing.NewHash(fields[1])
		evs = append(evs, event.NewRefUpdate(refName, oid.FromHash(oldHash), oid.FromHash(newHash), ""))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("hooks: read reference-transaction input: %w", err)
	}
	if len(evs) == 0 {
		return nil
	}
	txID, err := h.transactionID("reference-transaction")
	if err != nil {
		return err
	}
	return h.Log.AddEvents(txID, h.now(), evs)
}

// PostCommit implements the post-commit hook: record a Commit event for
// the newly created commit and keep it alive via the GC keeper (spec.md
// §4.9's "post-commit" entry point).
func (h *Hooks) PostCommit(ctx context.Context, o oid.OID) error {
	txID, err := h.transactionID("post-commit")
	if err != nil {
		return err
	}
	if err := h.Log.AddEvents(txID, h.now(), []event.Event{event.NewCommit(o)}); err != nil {
		return err
	}
	if h.Keeper != nil {
		if err := h.Keeper.Keep(o); err != nil {
			return fmt.Errorf("hooks: post-commit keep %s: %w", o, err)
		}
	}
	return nil
}

// RewritePair is one "old new" line the post-rewrite hook reads.
type RewritePair struct {
	Old, New oid.MaybeZero
}

// AbandonmentHint describes one rewritten commit's abandoned children,
// for the caller (typically a terminal command wrapper) to print a
// restack suggestion.
type AbandonmentHint struct {
	Rewritten oid.MaybeZero
	Abandoned []oid.OID
}

// AbandonmentFinder is the read side PostRewrite needs to find
// descendants of a rewritten commit: a DAG index built over the event
// log's current state, plus the replayer that produced its observed
// set. Expressed as an interface so the hook can be tested without a
// real repository.
type AbandonmentFinder interface {
	Descendants(s dagindex.Set) dagindex.Set
	SetOf(oids ...oid.OID) dagindex.Set
}

// PostRewrite implements the post-rewrite hook: append a Rewrite event
// per pair, then for each pair's old side compute
// find_abandoned_children(old) = descendants(old) ∩ observed − obsolete
// and collect a hint for any non-empty result (spec.md §4.9's
// "post-rewrite" entry point).
func (h *Hooks) PostRewrite(ctx context.Context, pairs []RewritePair, idx AbandonmentFinder, replayer *replay.Replayer) ([]AbandonmentHint, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	evs := make([]event.Event, 0, len(pairs))
	for _, p := range pairs {
		evs = append(evs, event.NewRewrite(p.Old, p.New))
	}
	txID, err := h.transactionID("post-rewrite")
	if err != nil {
		return nil, err
	}
	if err := h.Log.AddEvents(txID, h.now(), evs); err != nil {
		return nil, err
	}

	var hints []AbandonmentHint
	cursor := replayer.MakeDefaultCursor()
	for _, p := range pairs {
		oldOID, err := p.Old.ToOID()
		if err != nil {
			continue
		}
		descendants := idx.Descendants(idx.SetOf(oldOID))
		var abandoned []oid.OID
		for _, d := range descendants.ToVec() {
			if d.Equal(oldOID) {
				continue
			}
			if replayer.GetCursorCommitActivityStatus(cursor, d) == replay.Active {
				abandoned = append(abandoned, d)
			}
		}
		if len(abandoned) > 0 {
			hints = append(hints, AbandonmentHint{Rewritten: p.Old, Abandoned: abandoned})
		}
	}
	return hints, nil
}

// PostCheckout implements the post-checkout hook. It is a no-op beyond
// the reference-transaction bookkeeping the VCS itself also fires for
// the HEAD move (spec.md §4.9's "post-checkout" entry point: "no-op
// beyond ref-transaction bookkeeping").
func (h *Hooks) PostCheckout(ctx context.Context) error { return nil }

// ErrGCRefused is returned by PreAutoGC to signal the caller must
// propagate a non-zero exit status, refusing the VCS's own
// garbage-collection pass (spec.md §4.9's "pre-auto-gc" entry point).
var ErrGCRefused = fmt.Errorf("hooks: pre-auto-gc refused: hidden refs must be swept explicitly, not by the VCS's own gc")

// PreAutoGC implements the pre-auto-gc hook: it always refuses, so that
// the VCS's own object-reachability sweep never runs without this tool's
// hidden refs (gckeeper.Keeper) having had a chance to judge which
// commits are still logically live.
func (h *Hooks) PreAutoGC(ctx context.Context) error { return ErrGCRefused }
