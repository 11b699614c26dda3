package event

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/emitter/internal/event/dispatch"
)

// recorder is a comparable handler that remembers its calls.
type recorder struct {
	name  string
	order *[]string

	mu    sync.Mutex
	calls [][]any
	regs  []*Registry
}

func (r *recorder) Handle(ctx context.Context, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	r.regs = append(r.regs, FromContext(ctx))
	if r.order != nil {
		*r.order = append(*r.order, r.name)
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *dispatch.Deferred, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	sched := dispatch.NewDeferred(dispatch.WithDeferredFaultHandler(nil))
	base := []Option{
		WithScheduler(sched),
		WithLogger(zerolog.New(&buf)),
	}
	return NewRegistry(append(base, opts...)...), sched, &buf
}

func leakWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "possible event emitter memory leak")
}

func TestNewRegistry(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	assert.NotEmpty(t, r.ID())
	assert.Equal(t, DefaultMaxListeners, r.MaxListeners())
	assert.Empty(t, r.Types())
	assert.Equal(t, Stats{}, r.Stats())
}

func TestNewRegistry_UniqueIDs(t *testing.T) {
	a, _, _ := newTestRegistry(t)
	b, _, _ := newTestRegistry(t)

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRegistry_On_PreservesInsertionOrder(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	handlers := []*recorder{{name: "a"}, {name: "b"}, {name: "c"}, {name: "d"}}
	for _, h := range handlers {
		require.NoError(t, r.On("data", h))
	}

	got := r.Listeners("data")
	require.Len(t, got, len(handlers))
	for i, h := range handlers {
		assert.Same(t, h, got[i])
	}
}

func TestRegistry_On_NilHandler(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	var typedNil *recorder
	for _, h := range []Handler{nil, typedNil, HandlerFunc(nil)} {
		err := r.On("data", h)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Empty(t, r.Types())
}

func TestRegistry_Listeners_ReturnsCopy(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	h := &recorder{}
	require.NoError(t, r.On("data", h))

	got := r.Listeners("data")
	got[0] = &recorder{name: "intruder"}

	assert.Len(t, r.Listeners("data"), 1)
	assert.Same(t, h, r.Listeners("data")[0])
}

func TestRegistry_Listeners_Unknown(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	got := r.Listeners("nothing")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistry_Emit_NoHandlers(t *testing.T) {
	r, sched, _ := newTestRegistry(t)

	found, err := r.Emit(context.Background(), "data", 1)

	assert.False(t, found)
	assert.NoError(t, err)
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, uint64(1), r.Stats().Unhandled)
}

func TestRegistry_Emit_DefersAndOrders(t *testing.T) {
	r, sched, _ := newTestRegistry(t)

	var order []string
	h1 := &recorder{name: "h1", order: &order}
	h2 := &recorder{name: "h2", order: &order}
	require.NoError(t, r.On("data", h1))
	require.NoError(t, r.On("data", h2))

	found, err := r.Emit(context.Background(), "data", 42)
	require.NoError(t, err)
	assert.True(t, found)

	// Nothing ran yet.
	assert.Equal(t, 0, h1.count())
	assert.Equal(t, 0, h2.count())
	assert.Equal(t, 2, sched.Pending())

	sched.Flush()

	assert.Equal(t, []string{"h1", "h2"}, order)
	assert.Equal(t, [][]any{{42}}, h1.calls)
	assert.Equal(t, [][]any{{42}}, h2.calls)
	assert.Same(t, r, h1.regs[0])

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Emitted)
	assert.Equal(t, uint64(2), stats.Scheduled)
}

func TestRegistry_Emit_SnapshotsHandlers(t *testing.T) {
	r, sched, _ := newTestRegistry(t)

	early := &recorder{name: "early"}
	removed := &recorder{name: "removed"}
	late := &recorder{name: "late"}
	require.NoError(t, r.On("data", early))
	require.NoError(t, r.On("data", removed))

	_, err := r.Emit(context.Background(), "data")
	require.NoError(t, err)

	require.NoError(t, r.Off("data", removed))
	require.NoError(t, r.On("data", late))
	sched.Flush()

	assert.Equal(t, 1, early.count())
	assert.Equal(t, 1, removed.count(), "already scheduled invocation still runs")
	assert.Equal(t, 0, late.count())
}

func TestRegistry_Emit_SnapshotsArgs(t *testing.T) {
	r, sched, _ := newTestRegistry(t)
	h := &recorder{}
	require.NoError(t, r.On("data", h))

	args := []any{"a", "b"}
	_, err := r.Emit(context.Background(), "data", args...)
	require.NoError(t, err)
	args[0] = "mutated"
	sched.Flush()

	assert.Equal(t, [][]any{{"a", "b"}}, h.calls)
}

func TestRegistry_Emit_HandlerFaultsAreIsolated(t *testing.T) {
	var faults []error
	sched := dispatch.NewDeferred(dispatch.WithDeferredFaultHandler(func(err error) {
		faults = append(faults, err)
	}))
	r := NewRegistry(WithScheduler(sched), WithLogger(zerolog.Nop()))

	after := &recorder{}
	require.NoError(t, r.On("data", HandlerFunc(func(ctx context.Context, args ...any) error {
		panic("handler exploded")
	})))
	require.NoError(t, r.On("data", HandlerFunc(func(ctx context.Context, args ...any) error {
		return errors.New("handler failed")
	})))
	require.NoError(t, r.On("data", after))

	found, err := r.Emit(context.Background(), "data")
	require.NoError(t, err)
	assert.True(t, found)

	sched.Flush()

	assert.Equal(t, 1, after.count())
	require.Len(t, faults, 2)
	assert.ErrorIs(t, faults[0], dispatch.ErrTaskPanic)
	assert.EqualError(t, faults[1], "handler failed")
}

func TestRegistry_Emit_DetachesCancellation(t *testing.T) {
	r, sched, _ := newTestRegistry(t)

	var handlerErr error
	require.NoError(t, r.On("data", HandlerFunc(func(ctx context.Context, args ...any) error {
		handlerErr = ctx.Err()
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := r.Emit(ctx, "data")
	require.NoError(t, err)
	cancel()
	sched.Flush()

	assert.NoError(t, handlerErr)
}

func TestRegistry_Emit_SchedulerRejects(t *testing.T) {
	refused := errors.New("refused")
	r := NewRegistry(
		WithLogger(zerolog.Nop()),
		WithScheduler(dispatch.SchedulerFunc(func(task dispatch.Task) error {
			return refused
		})),
	)
	require.NoError(t, r.On("data", &recorder{}))

	found, err := r.Emit(context.Background(), "data")

	assert.True(t, found)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, uint64(0), r.Stats().Scheduled)
}

func TestRegistry_Emit_DefaultQueue(t *testing.T) {
	r := NewRegistry(WithLogger(zerolog.Nop()))

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	require.NoError(t, r.On("n", HandlerFunc(func(ctx context.Context, args ...any) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, args[0].(int))
		if len(got) == 3 {
			close(done)
		}
		return nil
	})))

	for i := 1; i <= 3; i++ {
		found, err := r.Emit(context.Background(), "n", i)
		require.NoError(t, err)
		require.True(t, found)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers did not run on the default queue")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRegistry_Emit_UnhandledError(t *testing.T) {
	r, sched, _ := newTestRegistry(t)
	cause := errors.New("disk on fire")

	found, err := r.Emit(context.Background(), ErrorType, cause)

	assert.False(t, found)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnhandledError)
	assert.Equal(t, 0, sched.Pending())

	var ue *UnhandledError
	require.ErrorAs(t, err, &ue)
	assert.Same(t, cause, ue.Value)
}

func TestRegistry_Emit_UnhandledErrorNonError(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	for _, args := range [][]any{nil, {"just a string"}, {42, errors.New("second")}} {
		found, err := r.Emit(context.Background(), ErrorType, args...)

		assert.False(t, found)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnhandledError)
		assert.Equal(t, `unhandled "error" event`, err.Error())
	}
}

func TestRegistry_Emit_HandledError(t *testing.T) {
	r, sched, _ := newTestRegistry(t)
	h := &recorder{}
	require.NoError(t, r.On(ErrorType, h))

	cause := errors.New("handled")
	found, err := r.Emit(context.Background(), ErrorType, cause)
	require.NoError(t, err)
	assert.True(t, found)

	sched.Flush()
	assert.Equal(t, [][]any{{cause}}, h.calls)
}

func TestRegistry_Off(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	a, b := &recorder{name: "a"}, &recorder{name: "b"}
	require.NoError(t, r.On("data", a))
	require.NoError(t, r.On("data", b))
	require.NoError(t, r.On("data", a))

	require.NoError(t, r.Off("data", a))

	got := r.Listeners("data")
	require.Len(t, got, 2)
	assert.Same(t, b, got[0])
	assert.Same(t, a, got[1])
}

func TestRegistry_Off_LastHandlerRemovesType(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	h := &recorder{}
	require.NoError(t, r.On("data", h))

	require.NoError(t, r.Off("data", h))

	assert.Empty(t, r.Types())
	assert.Equal(t, 0, r.ListenerCount("data"))
}

func TestRegistry_Off_Missing(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	h := &recorder{}
	require.NoError(t, r.On("data", h))

	assert.NoError(t, r.Off("data", &recorder{}))
	assert.NoError(t, r.Off("other", h))
	assert.Equal(t, 1, r.ListenerCount("data"))
}

func TestRegistry_Off_InvalidArguments(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	fn := HandlerFunc(func(ctx context.Context, args ...any) error { return nil })
	require.NoError(t, r.On("data", fn))

	assert.ErrorIs(t, r.Off("data", nil), ErrInvalidArgument)

	err := r.Off("data", fn)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	var ae *ArgumentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Off", ae.Op)

	assert.Equal(t, 1, r.ListenerCount("data"), "state unchanged")
}

func TestRegistry_Off_FuncHandler(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	h := Func(func(ctx context.Context, args ...any) error { return nil })
	require.NoError(t, r.On("data", h))

	require.NoError(t, r.Off("data", h))
	assert.Equal(t, 0, r.ListenerCount("data"))
}

func TestRegistry_OffAll(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	for _, typ := range []Type{"a", "b", "c"} {
		require.NoError(t, r.On(typ, &recorder{}))
		require.NoError(t, r.On(typ, &recorder{}))
	}

	assert.Same(t, r, r.OffAll("b", "missing"))
	assert.ElementsMatch(t, []Type{"a", "c"}, r.Types())

	r.OffAll()
	for _, typ := range []Type{"a", "b", "c"} {
		assert.Empty(t, r.Listeners(typ))
	}
	assert.Empty(t, r.Types())
	assert.Equal(t, 0, r.Stats().Listeners)
}

func TestRegistry_LeakWarning(t *testing.T) {
	r, _, buf := newTestRegistry(t)
	r.SetMaxListeners(1)

	require.NoError(t, r.On("x", &recorder{}))
	assert.Equal(t, 0, leakWarnings(buf))

	require.NoError(t, r.On("x", &recorder{}))
	assert.Equal(t, 1, leakWarnings(buf))
	assert.Contains(t, buf.String(), `"event_type":"x"`)
	assert.Contains(t, buf.String(), `"count":2`)
	assert.Contains(t, buf.String(), r.ID())
	assert.True(t, r.Stats().LeakWarned)
}

func TestRegistry_LeakWarning_OnlyOnce(t *testing.T) {
	r, _, buf := newTestRegistry(t, WithMaxListeners(2))

	for i := 0; i < 5; i++ {
		require.NoError(t, r.On("x", &recorder{}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, r.On("y", &recorder{}))
	}
	require.NoError(t, r.On("z", &recorder{}))

	assert.Equal(t, 1, leakWarnings(buf))
}

func TestRegistry_LeakWarning_ReportsCaller(t *testing.T) {
	r, _, buf := newTestRegistry(t, WithMaxListeners(1))

	require.NoError(t, r.On("x", &recorder{}))
	require.NoError(t, r.On("x", &recorder{}))

	assert.Equal(t, 1, leakWarnings(buf))
	assert.Contains(t, buf.String(), `"caller":"`)
	assert.Contains(t, buf.String(), "registry_test.go:")
}

func TestRegistry_Once_SkipsLeakCheck(t *testing.T) {
	r, _, buf := newTestRegistry(t, WithMaxListeners(1))

	for i := 0; i < 3; i++ {
		_, err := r.Once("x", &recorder{})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, leakWarnings(buf))
	assert.False(t, r.Stats().LeakWarned)

	// Pending once handlers still count towards the next On.
	require.NoError(t, r.On("x", &recorder{}))
	assert.Equal(t, 1, leakWarnings(buf))
	assert.Contains(t, buf.String(), `"count":4`)
}

func TestRegistry_LeakWarning_Disabled(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "zero max", opts: []Option{WithMaxListeners(0)}},
		{name: "negative max", opts: []Option{WithMaxListeners(-1)}},
		{name: "toggle off", opts: []Option{WithMaxListeners(1), WithLeakWarnings(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, buf := newTestRegistry(t, tt.opts...)
			for i := 0; i < 20; i++ {
				require.NoError(t, r.On("x", &recorder{}))
			}
			assert.Equal(t, 0, leakWarnings(buf))
			assert.False(t, r.Stats().LeakWarned)
		})
	}
}

func TestRegistry_SetMaxListeners_NotRetroactive(t *testing.T) {
	r, _, buf := newTestRegistry(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.On("x", &recorder{}))
	}

	assert.Same(t, r, r.SetMaxListeners(2))
	assert.Equal(t, 0, leakWarnings(buf))

	require.NoError(t, r.On("x", &recorder{}))
	assert.Equal(t, 1, leakWarnings(buf))
}

func TestRegistry_SetLeakWarnings(t *testing.T) {
	r, _, buf := newTestRegistry(t, WithMaxListeners(1), WithLeakWarnings(false))
	require.NoError(t, r.On("x", &recorder{}))
	require.NoError(t, r.On("x", &recorder{}))
	assert.Equal(t, 0, leakWarnings(buf))

	r.SetLeakWarnings(true)
	require.NoError(t, r.On("x", &recorder{}))
	assert.Equal(t, 1, leakWarnings(buf))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	q := dispatch.NewQueue(dispatch.WithFaultHandler(nil))
	require.NoError(t, q.Start())
	r := NewRegistry(WithLogger(zerolog.Nop()), WithMaxListeners(0), WithScheduler(q))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := &recorder{}
				_ = r.On("data", h)
				_, _ = r.Emit(context.Background(), "data", j)
				_ = r.Listeners("data")
				_ = r.Off("data", h)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.Equal(t, 0, r.ListenerCount("data"))
}
