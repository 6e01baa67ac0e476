// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package oid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/hugescm/modules/plumbing"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

func TestNewRejectsZeroHash(t *testing.T) {
	_, err := oid.New(plumbing.ZeroHash)
	require.ErrorIs(t, err, oid.ErrZeroOID)
}

func TestNewAcceptsNonZeroHash(t *testing.T) {
	var h plumbing.Hash
	h[0] = 1
	o, err := oid.New(h)
	require.NoError(t, err)
	require.Equal(t, h, o.Hash())
}

func TestMaybeZeroRoundTrip(t *testing.T) {
	var h plumbing.Hash
	h[0] = 7
	o := oid.MustNew(h)

	mz := oid.FromOID(o)
	require.False(t, mz.IsZero())
	back, err := mz.ToOID()
	require.NoError(t, err)
	require.True(t, back.Equal(o))

	_, err = oid.ZeroValue.ToOID()
	require.ErrorIs(t, err, oid.ErrZeroOID)
}

func TestOIDLessGivesTotalOrder(t *testing.T) {
	var ha, hb plumbing.Hash
	ha[0], hb[0] = 1, 2
	a, b := oid.MustNew(ha), oid.MustNew(hb)
	require.True(t, a.Less(b) != b.Less(a))
}

func TestOIDTextMarshalRoundTrip(t *testing.T) {
	var h plumbing.Hash
	h[0] = 9
	o := oid.MustNew(h)

	text, err := o.MarshalText()
	require.NoError(t, err)

	var decoded oid.OID
	require.NoError(t, decoded.UnmarshalText(text))
	require.True(t, decoded.Equal(o))
}

func TestOIDUnmarshalTextRejectsZero(t *testing.T) {
	zero, err := plumbing.ZeroHash.MarshalText()
	require.NoError(t, err)

	var o oid.OID
	require.ErrorIs(t, o.UnmarshalText(zero), oid.ErrZeroOID)
}
