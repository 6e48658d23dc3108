package await_test

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-await"
	"github.com/joeycumines/go-await/looper"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Example drives a complete round trip: a looper acts as the master's
// scheduler, a coroutine awaits an external operation, and a timer delivers
// the completion.
func Example() {
	l, err := looper.New("main")
	if err != nil {
		panic(err)
	}
	await.InitScheduler(l.Scheduler())

	op := await.New("greeting")
	completer := op.TakeCompleter()

	task := await.StartAsync("task", func(*await.Awaitable) error {
		if err := op.Await(); err != nil {
			return err
		}
		fmt.Println("greeting received")
		return nil
	})
	task.Then(func(*await.Awaitable) { l.Quit() })

	l.Schedule(completer.Complete, 10*time.Millisecond)
	if err := l.Run(); err != nil {
		panic(err)
	}
	fmt.Println("loop stopped")

	// Output:
	// greeting received
	// loop stopped
}

// ExampleAwaitAny builds a timeout by racing an operation against a delay.
func ExampleAwaitAny() {
	l, err := looper.New("main")
	if err != nil {
		panic(err)
	}
	await.InitScheduler(l.Scheduler())

	slow := await.New("slow-op")
	_ = slow.TakeCompleter()

	task := await.StartAsync("racer", func(*await.Awaitable) error {
		timeout := await.AsyncDelay(5*time.Millisecond, l.Scheduler())
		if await.AwaitAny([]*await.Awaitable{slow, timeout}) == 1 {
			fmt.Println("timed out")
		}
		return nil
	})
	task.Then(func(*await.Awaitable) { l.Quit() })

	if err := l.Run(); err != nil {
		panic(err)
	}

	// Output:
	// timed out
}

// ExampleSetLogger wires the runtime's diagnostics into a stumpy JSON
// logger, generalized to the logiface event interface.
func ExampleSetLogger() {
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	)
	await.SetLogger(logger.Logger())
	defer await.SetLogger(nil)

	// Runtime diagnostics are debug-level: nothing is emitted at info.
	c := await.NewCoro("quiet", func(any) {})
	await.YieldTo(c, nil)
	fmt.Println("no output above")

	// Output:
	// no output above
}
