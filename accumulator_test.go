package serial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoMemory = errors.New("out of memory")

// testAllocator fails every allocation larger than max, or every allocation
// while fail is set.
type testAllocator struct {
	max   int
	fail  bool
	calls int
}

func (a *testAllocator) alloc(size int) ([]byte, error) {
	a.calls++
	if a.fail || (a.max > 0 && size > a.max) {
		return nil, errNoMemory
	}
	return make([]byte, 0, size), nil
}

func TestAccumulator_Defaults(t *testing.T) {
	acc, err := NewAccumulator(0, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, acc.Len())
	assert.Equal(t, DefaultInitialCapacity, acc.Cap())
}

func TestAccumulator_GrowthKeepsData(t *testing.T) {
	acc, err := NewAccumulator(DefaultInitialCapacity, DefaultGrowthIncrement, nil)
	require.NoError(t, err)

	want := make([]byte, 25)
	for i := range want {
		want[i] = byte('a' + i)
		require.NoError(t, acc.Append(want[i]))
	}
	assert.Equal(t, 25, acc.Len())
	assert.GreaterOrEqual(t, acc.Cap(), 25)
	assert.Equal(t, 30, acc.Cap())

	msg, err := acc.Finalize()
	require.NoError(t, err)
	assert.Equal(t, want, msg)
	assert.Equal(t, 0, acc.Len())
	assert.Equal(t, 30, acc.Cap(), "capacity is retained after finalize")
}

func TestAccumulator_GrowthIsAmortized(t *testing.T) {
	a := &testAllocator{}
	acc, err := NewAccumulator(10, 10, a.alloc)
	require.NoError(t, err)
	require.Equal(t, 1, a.calls)

	for i := 0; i < 1000; i++ {
		require.NoError(t, acc.Append(byte(i)))
	}
	// one growth each time the buffer fills: at 10, 20, ..., 990
	assert.Equal(t, 1+99, a.calls)
	assert.Equal(t, 1000, acc.Cap())
}

func TestAccumulator_FinalizeCopies(t *testing.T) {
	acc, err := NewAccumulator(4, 4, nil)
	require.NoError(t, err)

	for _, b := range []byte("abc") {
		require.NoError(t, acc.Append(b))
	}
	msg, err := acc.Finalize()
	require.NoError(t, err)

	require.NoError(t, acc.Append('z'))
	assert.Equal(t, []byte("abc"), msg, "message must not alias the buffer")

	msg[0] = 'X'
	assert.Equal(t, []byte("z"), acc.Bytes())
}

func TestAccumulator_FinalizeEmpty(t *testing.T) {
	acc, err := NewAccumulator(0, 0, nil)
	require.NoError(t, err)

	msg, err := acc.Finalize()
	require.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Empty(t, msg)
}

func TestAccumulator_AppendFailureLeavesStateIntact(t *testing.T) {
	a := &testAllocator{max: 10}
	acc, err := NewAccumulator(10, 10, a.alloc)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, acc.Append(byte('0'+i)))
	}

	err = acc.Append('x')
	require.ErrorIs(t, err, ErrAllocation)
	require.ErrorIs(t, err, errNoMemory)
	assert.Equal(t, 10, acc.Len())
	assert.Equal(t, 10, acc.Cap())
	assert.Equal(t, []byte("0123456789"), acc.Bytes())

	a.max = 0
	require.NoError(t, acc.Append('x'))
	assert.Equal(t, []byte("0123456789x"), acc.Bytes())
}

func TestAccumulator_FinalizeFailureDoesNotReset(t *testing.T) {
	a := &testAllocator{}
	acc, err := NewAccumulator(10, 10, a.alloc)
	require.NoError(t, err)

	for _, b := range []byte("keep") {
		require.NoError(t, acc.Append(b))
	}

	a.fail = true
	msg, err := acc.Finalize()
	require.ErrorIs(t, err, ErrAllocation)
	assert.Nil(t, msg)
	assert.Equal(t, []byte("keep"), acc.Bytes())

	a.fail = false
	msg, err = acc.Finalize()
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), msg)
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulator_ShortAllocationIsFailure(t *testing.T) {
	acc, err := NewAccumulator(10, 10, nil)
	require.NoError(t, err)
	acc.alloc = func(size int) ([]byte, error) {
		return make([]byte, 0, size/2), nil
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, acc.Append('a'))
	}
	require.ErrorIs(t, acc.Append('b'), ErrAllocation)
	assert.Equal(t, 10, acc.Len())
}

func TestAccumulator_InitialAllocationFailure(t *testing.T) {
	a := &testAllocator{fail: true}
	_, err := NewAccumulator(10, 10, a.alloc)
	require.ErrorIs(t, err, ErrAllocation)
}

func TestAccumulator_Reset(t *testing.T) {
	acc, err := NewAccumulator(2, 2, nil)
	require.NoError(t, err)

	for _, b := range []byte("hello") {
		require.NoError(t, acc.Append(b))
	}
	capBefore := acc.Cap()

	acc.Reset()
	assert.Equal(t, 0, acc.Len())
	assert.Equal(t, capBefore, acc.Cap())
}
