package await

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackGuard_TokenObservesBlock(t *testing.T) {
	g := NewCallbackGuard()
	token := g.Token()
	require.False(t, token.IsBlocked())

	g.Block()
	assert.True(t, token.IsBlocked())
	assert.True(t, g.Token().IsBlocked())
}

func TestGuardToken_ZeroValueBlocked(t *testing.T) {
	var token GuardToken
	assert.True(t, token.IsBlocked())
}

// TestWrap_LateCallbackIgnored destroys an awaitable and then invokes the
// raw callback that was handed to an external API: no crash, no state
// change, guard reports blocked.
func TestWrap_LateCallbackIgnored(t *testing.T) {
	a := New("io-op")
	completer := a.TakeCompleter()

	invoked := false
	callback := completer.Wrap(func(args ...any) error {
		invoked = true
		return nil
	})
	token := completer.GuardToken()
	require.False(t, token.IsBlocked())

	require.NoError(t, a.Close())

	callback()
	require.False(t, invoked)
	assert.True(t, token.IsBlocked())
	assert.False(t, a.IsDone())
}

func TestWrap_CompletesOnNilError(t *testing.T) {
	a := New("io-op")
	completer := a.TakeCompleter()

	var gotArgs []any
	callback := completer.Wrap(func(args ...any) error {
		gotArgs = args
		return nil
	})

	callback(42, "payload")
	require.Equal(t, []any{42, "payload"}, gotArgs)
	assert.True(t, a.DidComplete())
	assert.True(t, completer.IsExpired())
}

func TestWrap_FailsOnError(t *testing.T) {
	boom := errors.New("io failure")
	a := New("io-op")
	completer := a.TakeCompleter()

	callback := completer.Wrap(func(...any) error {
		return boom
	})

	callback()
	require.True(t, a.DidFail())
	require.Equal(t, boom, a.Err())
}

func TestWrap_SecondInvocationIgnored(t *testing.T) {
	a := New("io-op")
	completer := a.TakeCompleter()

	count := 0
	callback := completer.Wrap(func(...any) error {
		count++
		return nil
	})

	callback()
	callback() // guard blocked by the completion
	require.Equal(t, 1, count)
	assert.True(t, a.DidComplete())
}
