// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package respool_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/zeta-branchless/modules/zetabl/respool"
)

func TestAcquireReusesReleasedHandle(t *testing.T) {
	var created int32
	pool := respool.New(func() (int, error) {
		return int(atomic.AddInt32(&created, 1)), nil
	}, nil)

	h1, err := pool.Acquire()
	require.NoError(t, err)
	require.Equal(t, 1, h1)
	pool.Release(h1)

	h2, err := pool.Acquire()
	require.NoError(t, err)
	require.Equal(t, h1, h2, "a released handle should be reused instead of creating a new one")
	require.Equal(t, 1, pool.Live())
}

func TestDiscardedHandleIsNotReused(t *testing.T) {
	var created int32
	var destroyed []int
	pool := respool.New(func() (int, error) {
		return int(atomic.AddInt32(&created, 1)), nil
	}, func(h int) {
		destroyed = append(destroyed, h)
	})

	h1, err := pool.Acquire()
	require.NoError(t, err)
	pool.Discard(h1)
	require.Equal(t, 0, pool.Live())
	require.Equal(t, []int{h1}, destroyed)

	h2, err := pool.Acquire()
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
