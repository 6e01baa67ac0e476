// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package replay folds the event-log stream into a per-commit activity
// status and a cursor-addressable history (spec.md §4.3, "C3"). It mirrors
// the forward, single-pass replay style of the teacher's own history
// rebuilder (cmd/hot/pkg/replay), generalized from "rewrite a git history"
// to "answer activity-status queries at an arbitrary cursor".
//
// The replayer is read-only: it never writes events, and its construction
// cost is linear in the event count, with all queries O(log n) or O(1)
// after the initial index build.
package replay

import (
	"sort"

	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// Status is the three-state activity classification derived by the
// replayer for a (cursor, oid) pair.
type Status uint8

const (
	// Inactive: never observed at or before the cursor.
	Inactive Status = iota
	// Active: observed and not currently obsolete.
	Active
	// Obsolete: the last relevant event for this oid is Obsolete, or a
	// Rewrite whose old side is this oid with a non-zero new side.
	Obsolete
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Obsolete:
		return "Obsolete"
	default:
		return "Inactive"
	}
}

// Replayer indexes an immutable event slice for cursor queries. Build it
// fresh per command from the event log's current contents; it holds no
// reference back to the log and performs no I/O of its own.
type Replayer struct {
	events []event.Event
	// byOID maps an oid to the indices (into events, ascending) of every
	// event that bears on its activity status.
	byOID map[oid.OID][]int
}

// New builds a Replayer over events, which must already be in ascending
// event-id order (as returned by eventlog.Log.GetEvents).
func New(events []event.Event) *Replayer {
	r := &Replayer{
		events: events,
		byOID:  make(map[oid.OID][]int, len(events)),
	}
	for i, e := range events {
		for _, o := range e.RelevantOIDs() {
			r.byOID[o] = append(r.byOID[o], i)
		}
	}
	return r
}

// MakeDefaultCursor returns the cursor addressing the end of the log (the
// most current view).
func (r *Replayer) MakeDefaultCursor() int {
	return len(r.events)
}

// eventsAtOrBefore returns the sub-slice of r.events[idxs] whose event id
// (equivalently, position) is <= cursor. Positions are 1-based event counts
// to match the eventlog cursor convention (0 = before the first event).
func (r *Replayer) eventsAtOrBefore(idxs []int, cursor int) []int {
	limit := sort.Search(len(idxs), func(i int) bool { return idxs[i] >= cursor })
	return idxs[:limit]
}

// GetCursorCommitLatestEvent returns the last event for oid at or before
// cursor, if any.
func (r *Replayer) GetCursorCommitLatestEvent(cursor int, o oid.OID) (event.Event, bool) {
	idxs, ok := r.byOID[o]
	if !ok {
		return event.Event{}, false
	}
	visible := r.eventsAtOrBefore(idxs, cursor)
	if len(visible) == 0 {
		return event.Event{}, false
	}
	return r.events[visible[len(visible)-1]], true
}

// GetCursorCommitActivityStatus computes the activity state machine
// described in spec.md §4.3 over the oid's event history at or before
// cursor.
func (r *Replayer) GetCursorCommitActivityStatus(cursor int, o oid.OID) Status {
	e, ok := r.GetCursorCommitLatestEvent(cursor, o)
	if !ok {
		return Inactive
	}
	switch e.Kind {
	case event.KindCommit, event.KindUnobsolete:
		return Active
	case event.KindObsolete:
		return Obsolete
	case event.KindRewrite:
		if newOID, err := e.NewOID.ToOID(); err == nil && newOID.Equal(o) {
			// A rewrite whose *new* side is this oid: it became active
			// (this is the successor commit).
			return Active
		}
		if oldOID, err := e.OldOID.ToOID(); err == nil && oldOID.Equal(o) {
			if e.NewOID.IsZero() {
				// Rewritten with no successor (e.g. dropped): obsolete.
				return Obsolete
			}
			if newOID, err := e.NewOID.ToOID(); err == nil && !newOID.Equal(o) {
				return Obsolete
			}
		}
		return Inactive
	default:
		return Inactive
	}
}

// AdvanceCursorByTransaction moves cursor by delta whole transactions,
// landing on the boundary between transactions. delta may be negative.
// advance(advance(c, +1), -1) == c whenever c already lies on a boundary
// (spec.md §8, property 2).
func (r *Replayer) AdvanceCursorByTransaction(cursor int, delta int) int {
	if delta == 0 {
		return r.snapToBoundary(cursor)
	}
	bounds := r.TransactionBoundaries()
	// Find the boundary at or before cursor.
	pos := sort.SearchInts(bounds, cursor)
	if pos == len(bounds) || bounds[pos] != cursor {
		pos--
	}
	pos += delta
	switch {
	case pos < 0:
		return 0
	case pos >= len(bounds):
		return bounds[len(bounds)-1]
	default:
		return bounds[pos]
	}
}

// TransactionBoundaries returns every cursor position that begins a new
// transaction, plus 0 and len(events) as the outer boundaries, strictly
// ascending and deduplicated. It is the primitive an "undo" command walks
// backwards over, one transaction at a time (SPEC_FULL.md "Supplemented
// features").
func (r *Replayer) TransactionBoundaries() []int {
	bounds := []int{0}
	var lastTx event.TxID
	haveLast := false
	for i, e := range r.events {
		if !haveLast || e.TxID != lastTx {
			if i > 0 {
				bounds = append(bounds, i)
			}
			lastTx = e.TxID
			haveLast = true
		}
	}
	if bounds[len(bounds)-1] != len(r.events) {
		bounds = append(bounds, len(r.events))
	}
	return bounds
}

func (r *Replayer) snapToBoundary(cursor int) int {
	bounds := r.TransactionBoundaries()
	pos := sort.SearchInts(bounds, cursor)
	if pos < len(bounds) && bounds[pos] == cursor {
		return cursor
	}
	if pos == 0 {
		return bounds[0]
	}
	return bounds[pos-1]
}

// GetCursorOIDs returns every oid with any event at or before cursor.
func (r *Replayer) GetCursorOIDs(cursor int) []oid.OID {
	out := make([]oid.OID, 0, len(r.byOID))
	for o, idxs := range r.byOID {
		if len(r.eventsAtOrBefore(idxs, cursor)) > 0 {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// EventsInTransaction returns every event sharing txID, in log order. It
// backs undo-stack style tooling (SPEC_FULL.md "Supplemented features").
func (r *Replayer) EventsInTransaction(txID event.TxID) []event.Event {
	var out []event.Event
	for _, e := range r.events {
		if e.TxID == txID {
			out = append(out, e)
		}
	}
	return out
}
