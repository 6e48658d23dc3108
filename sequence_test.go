package await

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_YieldsInOrder(t *testing.T) {
	seq := NewSequence("digits", func(y *Yielder[int]) error {
		for i := 1; i <= 3; i++ {
			y.Yield(i)
		}
		return nil
	})
	defer seq.Close()

	var got []int
	for seq.Next() {
		got = append(got, seq.Value())
	}
	require.Equal(t, []int{1, 2, 3}, got)
	require.NoError(t, seq.Err())
	require.False(t, seq.Next())
}

func TestSequence_YieldFromNestedCalls(t *testing.T) {
	emit := func(y *Yielder[string], values ...string) {
		for _, v := range values {
			y.Yield(v)
		}
	}
	seq := NewSequence("nested", func(y *Yielder[string]) error {
		emit(y, "a", "b")
		emit(y, "c")
		return nil
	})
	defer seq.Close()

	var got []string
	for seq.Next() {
		got = append(got, seq.Value())
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSequence_ErrorEndsIteration(t *testing.T) {
	boom := errors.New("producer boom")
	seq := NewSequence("failing", func(y *Yielder[int]) error {
		y.Yield(1)
		return boom
	})
	defer seq.Close()

	require.True(t, seq.Next())
	require.Equal(t, 1, seq.Value())
	require.False(t, seq.Next())
	require.Equal(t, boom, seq.Err())
	require.False(t, seq.Next())
}

func TestSequence_CloseRunsProducerCleanup(t *testing.T) {
	cleaned := false
	seq := NewSequence("cleanup", func(y *Yielder[int]) error {
		defer func() {
			cleaned = true
		}()
		for i := 0; ; i++ {
			y.Yield(i)
		}
	})

	require.True(t, seq.Next())
	require.True(t, seq.Next())
	require.NoError(t, seq.Close())
	assert.True(t, cleaned)
	require.False(t, seq.Next())
}

func TestSequence_CloseBeforeFirstNext(t *testing.T) {
	entered := false
	seq := NewSequence("unstarted", func(y *Yielder[int]) error {
		entered = true
		return nil
	})
	require.NoError(t, seq.Close())
	require.False(t, entered)
}
