// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package oid defines the two object-identifier shapes used throughout the
// commit-graph rewrite core: one that statically forbids the all-zero value
// (an OID meant to name a real object) and one that admits zero (used in
// reference updates, where zero means "absent").
package oid

import (
	"encoding/json"
	"errors"

	"github.com/antgroup/hugescm/modules/plumbing"
)

// ErrZeroOID is returned when a MaybeZero value that is actually zero is
// converted to an OID.
var ErrZeroOID = errors.New("oid: zero object id is not a valid object reference")

// OID names a real, observed object. The zero value is never valid; use
// New to construct one, which validates non-zeroness.
type OID struct {
	h plumbing.Hash
}

// New constructs an OID from a content hash, failing if the hash is zero.
func New(h plumbing.Hash) (OID, error) {
	if h.IsZero() {
		return OID{}, ErrZeroOID
	}
	return OID{h: h}, nil
}

// MustNew is New but panics on a zero hash; for call sites that have already
// checked non-zeroness (e.g. decoding a value that was itself constructed
// through New).
func MustNew(h plumbing.Hash) OID {
	o, err := New(h)
	if err != nil {
		panic(err)
	}
	return o
}

// Hash returns the underlying content hash.
func (o OID) Hash() plumbing.Hash { return o.h }

// String renders the hex representation of the hash.
func (o OID) String() string { return o.h.String() }

// Equal reports whether two OIDs name the same object.
func (o OID) Equal(other OID) bool { return o.h == other.h }

// Less provides a total order over OIDs, used by the DAG index's stable
// topological sort tie-breaker (oid ascending).
func (o OID) Less(other OID) bool { return o.String() < other.String() }

func (o OID) MarshalText() ([]byte, error) { return o.h.MarshalText() }

func (o *OID) UnmarshalText(text []byte) error {
	var h plumbing.Hash
	if err := h.UnmarshalText(text); err != nil {
		return err
	}
	if h.IsZero() {
		return ErrZeroOID
	}
	o.h = h
	return nil
}

// MaybeZero names an object that may legitimately be absent (the zero
// hash), as used by RefUpdate's old/new sides.
type MaybeZero struct {
	h plumbing.Hash
}

// ZeroValue is the canonical "absent" MaybeZero.
var ZeroValue = MaybeZero{}

// FromOID lifts a real OID into a MaybeZero; this direction is total.
func FromOID(o OID) MaybeZero { return MaybeZero{h: o.h} }

// FromHash wraps a raw hash (possibly zero) as a MaybeZero.
func FromHash(h plumbing.Hash) MaybeZero { return MaybeZero{h: h} }

// IsZero reports whether this value represents "absent".
func (m MaybeZero) IsZero() bool { return m.h.IsZero() }

// Hash returns the underlying hash, which may be zero.
func (m MaybeZero) Hash() plumbing.Hash { return m.h }

// ToOID is the fallible direction: it fails when the value is zero.
func (m MaybeZero) ToOID() (OID, error) {
	if m.h.IsZero() {
		return OID{}, ErrZeroOID
	}
	return OID{h: m.h}, nil
}

func (m MaybeZero) String() string { return m.h.String() }

func (m MaybeZero) MarshalText() ([]byte, error) { return m.h.MarshalText() }

func (m *MaybeZero) UnmarshalText(text []byte) error {
	var h plumbing.Hash
	if err := h.UnmarshalText(text); err != nil {
		return err
	}
	m.h = h
	return nil
}

var (
	_ json.Marshaler   = OID{}
	_ json.Unmarshaler = (*OID)(nil)
)

func (o OID) MarshalJSON() ([]byte, error)      { return o.h.MarshalJSON() }
func (o *OID) UnmarshalJSON(b []byte) error     { return (&o.h).UnmarshalJSON(b) }
func (m MaybeZero) MarshalJSON() ([]byte, error) { return m.h.MarshalJSON() }
func (m *MaybeZero) UnmarshalJSON(b []byte) error {
	return (&m.h).UnmarshalJSON(b)
}
