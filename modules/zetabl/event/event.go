// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package event defines the append-only event-log record types: the tagged
// union of observed changes to refs, commits, and obsolescence state, and
// the transaction id that groups every event emitted by one logical user
// command.
package event

import (
	"time"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// TxID groups every event produced by a single logical user command. It is
// dense, allocated by (timestamp, message), and carries no ordering
// semantics beyond monotonicity with the event id: it exists purely for
// grouping (UI display, cursor-by-transaction arithmetic).
type TxID int64

// Kind discriminates the Event variants.
type Kind uint8

const (
	KindRefUpdate Kind = iota + 1
	KindCommit
	KindRewrite
	KindObsolete
	KindUnobsolete
	KindWorkingCopySnapshot
)

func (k Kind) String() string {
	switch k {
	case KindRefUpdate:
		return "RefUpdate"
	case KindCommit:
		return "Commit"
	case KindRewrite:
		return "Rewrite"
	case KindObsolete:
		return "Obsolete"
	case KindUnobsolete:
		return "Unobsolete"
	case KindWorkingCopySnapshot:
		return "WorkingCopySnapshot"
	default:
		return "Unknown"
	}
}

// Event is one immutable record in the log. Only the fields relevant to
// Kind are meaningful; readers must tolerate unknown Kind values (forward
// compatibility, see spec.md §6) by skipping them rather than failing.
type Event struct {
	ID        int64     `json:"id"`
	TxID      TxID      `json:"tx_id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`

	// RefUpdate
	RefName plumbing.ReferenceName `json:"ref_name,omitempty"`
	OldOID  oid.MaybeZero          `json:"old_oid,omitempty"`
	NewOID  oid.MaybeZero          `json:"new_oid,omitempty"`
	Message string                 `json:"message,omitempty"`

	// Commit / Obsolete / Unobsolete
	OID oid.OID `json:"oid,omitempty"`

	// Rewrite reuses OldOID/NewOID above.

	// WorkingCopySnapshot
	HeadOID   oid.MaybeZero `json:"head_oid,omitempty"`
	CommitOID oid.OID       `json:"commit_oid,omitempty"`
}

// NewRefUpdate builds a RefUpdate event. A ref whose name is on an ignore
// list, or which matches the GC-keeper hidden-ref prefix, must never reach
// this constructor — filtering that out is the caller's (hook layer's)
// responsibility, per spec.md §3's invariant.
func NewRefUpdate(refName plumbing.ReferenceName, oldOID, newOID oid.MaybeZero, message string) Event {
	return Event{Kind: KindRefUpdate, RefName: refName, OldOID: oldOID, NewOID: newOID, Message: message}
}

// NewCommit builds a Commit event.
func NewCommit(o oid.OID) Event { return Event{Kind: KindCommit, OID: o} }

// NewRewrite builds a Rewrite event. oldOID/newOID may each be zero per
// spec.md §3; a zero newOID records that oldOID was rewritten away without
// a direct successor (e.g. dropped).
func NewRewrite(oldOID, newOID oid.MaybeZero) Event {
	return Event{Kind: KindRewrite, OldOID: oldOID, NewOID: newOID}
}

// NewObsolete marks oid obsolete.
func NewObsolete(o oid.OID) Event { return Event{Kind: KindObsolete, OID: o} }

// NewUnobsolete reverses a prior Obsolete/Rewrite for oid.
func NewUnobsolete(o oid.OID) Event { return Event{Kind: KindUnobsolete, OID: o} }

// NewWorkingCopySnapshot records that a snapshot commit was created to
// capture working-copy state before a potentially destructive checkout.
func NewWorkingCopySnapshot(headOID oid.MaybeZero, commitOID oid.OID, refName plumbing.ReferenceName) Event {
	return Event{Kind: KindWorkingCopySnapshot, HeadOID: headOID, CommitOID: commitOID, RefName: refName}
}

// RelevantOIDs returns every oid this event bears on, for replay indexing:
// a Rewrite touches both its old and new side (when non-zero), everything
// else touches at most one. RefUpdate and WorkingCopySnapshot carry oids in
// other roles (ref targets, stage commits) and are not indexed by this path.
func (e Event) RelevantOIDs() []oid.OID {
	switch e.Kind {
	case KindCommit, KindObsolete, KindUnobsolete:
		return []oid.OID{e.OID}
	case KindRewrite:
		var out []oid.OID
		if o, err := e.OldOID.ToOID(); err == nil {
			out = append(out, o)
		}
		if o, err := e.NewOID.ToOID(); err == nil {
			out = append(out, o)
		}
		return out
	default:
		return nil
	}
}
