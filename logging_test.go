package await_test

import (
	"bytes"
	"testing"

	"github.com/joeycumines/go-await"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger_EmitsLifecycleDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	)
	await.SetLogger(logger.Logger())
	defer await.SetLogger(nil)

	c := await.NewCoro("logged-coro", func(any) {})
	await.YieldTo(c, nil)

	out := buf.String()
	assert.Contains(t, out, "coroutine created")
	assert.Contains(t, out, "logged-coro")
}

func TestSetLogger_NilDisables(t *testing.T) {
	await.SetLogger(nil)
	// Must not panic with no logger configured.
	c := await.NewCoro("silent", func(any) {})
	await.YieldTo(c, nil)

	a := await.New("silent-op")
	completer := a.TakeCompleter()
	completer.Complete()
	require.True(t, a.DidComplete())
}

func TestSetLogger_AwaitableTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	)
	await.SetLogger(logger.Logger())
	defer await.SetLogger(nil)

	a := await.New("observed-op")
	completer := a.TakeCompleter()
	completer.Complete()

	out := buf.String()
	assert.Contains(t, out, "awaitable created")
	assert.Contains(t, out, "awaitable completed")
	assert.Contains(t, out, "observed-op")
}
