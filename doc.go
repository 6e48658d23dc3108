// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package await provides a single-threaded cooperative concurrency runtime
// built around coroutines and awaitables.
//
// A coroutine is an independently-stacked execution context (backed by a
// parked goroutine) that suspends and resumes at explicit points. An
// [Awaitable] is a first-class handle to an in-flight asynchronous operation;
// a coroutine may suspend on it via [Awaitable.Await] until the operation
// completes or fails. Sequential-looking code, asynchronous execution.
//
// # Architecture
//
// Every runtime goroutine that uses the package owns a distinguished master
// coroutine, created lazily on first use. All completions and scheduled
// actions execute on the master; coroutines within a runtime goroutine are
// multiplexed by explicit yields only. There is no preemption and no implicit
// scheduler queue at the coroutine layer: switching is symmetric, any
// coroutine may yield to any other by identity.
//
// [StartAsync] binds a user function to a fresh coroutine and returns an
// [Awaitable] for it. The coroutine does not start inside StartAsync; it is
// entered either by the scheduler (a cancellable start action posted to the
// master's [Scheduler]) or directly by the first Await on its awaitable,
// whichever comes first.
//
// External events deliver results through a [Completer], a copyable capability
// carrying a weak reference to its awaitable. Once the awaitable reaches a
// terminal state or is closed, every outstanding completer is expired and
// further calls are no-ops.
//
// # Cancellation
//
// Closing an awaitable is the sole cancellation primitive. If the bound
// coroutine is suspended, [Awaitable.Close] resumes it with a forced-unwind
// panic and drives the stack to completion (running deferred cleanup) before
// returning. User code that recovers inside a coroutine must re-panic values
// for which [IsForcedUnwind] reports true; swallowing the unwind breaks the
// cancellation protocol.
//
// # Thread safety
//
// Coroutines, awaitables and completers are single-threaded objects. The only
// sanctioned cross-thread operations are [Completer.ScheduleComplete] and
// [Completer.ScheduleFail], which re-dispatch the completion to the owning
// master via its scheduler. Direct cross-thread completion panics with a
// *ContractError.
//
// The companion package looper provides a ticketed, time-ordered cooperative
// event loop suitable as the master's scheduler.
package await
