// Package sandbox executes learner JavaScript in an isolated goja VM with a wall-clock limit and captured console.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dop251/goja"
)

const (
	// DefaultTimeout bounds one execution when the Runner sets none.
	DefaultTimeout = 2 * time.Second
	// DefaultMaxSourceBytes bounds accepted source when the Runner sets none.
	DefaultMaxSourceBytes = 64 * 1024
	// DefaultMaxLogLines bounds captured console lines when the Runner sets none.
	DefaultMaxLogLines = 500
	// DefaultMaxLogBytes bounds the total captured console text when the Runner sets none.
	DefaultMaxLogBytes = 256 << 10

	maxLineBytes     = 16 << 10
	maxValueBytes    = 1 << 20
	maxCallStackSize = 1024
	maxTimers        = 1000
)

var (
	// ErrTimeout is returned when the VM is interrupted by the timeout or the context deadline.
	ErrTimeout = errors.New("sandbox: execution timed out")
	// ErrSourceTooLarge is returned when the source exceeds MaxSourceBytes.
	ErrSourceTooLarge = errors.New("sandbox: source too large")
)

// Outcomes reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Observer records executions; the metrics package implements it.
type Observer interface {
	ObserveExecution(outcome string, d time.Duration)
}

// LogLine is one captured console call. Level is the console method (log, info, warn, error, debug, table).
type LogLine struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Result is the outcome of one execution. Script exceptions populate Error; they are not Go errors.
type Result struct {
	Logs []LogLine `json:"logs"`
	// Value is the completion value of the script, or the return value for Call, exported to Go.
	Value any `json:"value,omitempty"`
	// JSON is JSON.stringify of Value as computed inside the VM; empty when the value is undefined, not serializable
	// or too large, in which case Value is dropped too and Truncated is set.
	JSON      string        `json:"json,omitempty"`
	Error     string        `json:"error,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Runner executes JavaScript sources. The zero value uses the defaults; a Runner is safe for concurrent use.
type Runner struct {
	Timeout        time.Duration
	MaxSourceBytes int
	MaxLogLines    int
	MaxLogBytes    int
	Observer       Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-execution wall-clock limit.
func WithTimeout(d time.Duration) Option { return func(r *Runner) { r.Timeout = d } }

// WithMaxSourceBytes sets the largest accepted source.
func WithMaxSourceBytes(n int) Option { return func(r *Runner) { r.MaxSourceBytes = n } }

// WithMaxLogLines sets how many console lines are kept.
func WithMaxLogLines(n int) Option { return func(r *Runner) { r.MaxLogLines = n } }

// WithMaxLogBytes sets how many bytes of console text are kept in total. A single line keeps at most 16 KiB.
func WithMaxLogBytes(n int) Option { return func(r *Runner) { r.MaxLogBytes = n } }

// WithObserver reports every execution to o.
func WithObserver(o Observer) Option { return func(r *Runner) { r.Observer = o } }

// New returns a Runner with defaults overridden by opts.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *Runner) maxSource() int {
	if r.MaxSourceBytes > 0 {
		return r.MaxSourceBytes
	}
	return DefaultMaxSourceBytes
}

func (r *Runner) maxLogs() int {
	if r.MaxLogLines > 0 {
		return r.MaxLogLines
	}
	return DefaultMaxLogLines
}

func (r *Runner) maxLogBytes() int {
	if r.MaxLogBytes > 0 {
		return r.MaxLogBytes
	}
	return DefaultMaxLogBytes
}

// Run executes source and returns its captured console output and completion value.
func (r *Runner) Run(ctx context.Context, source string) (*Result, error) {
	return r.exec(ctx, source, "", nil)
}

// Call executes source, then calls the global function fn with args and returns its result.
func (r *Runner) Call(ctx context.Context, source, fn string, args []any) (*Result, error) {
	if fn == "" {
		return nil, errors.New("sandbox: function name required")
	}
	return r.exec(ctx, source, fn, args)
}

func (r *Runner) exec(ctx context.Context, source, fn string, args []any) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if r.Observer == nil {
			return
		}
		outcome := OutcomeOK
		switch {
		case errors.Is(err, ErrSourceTooLarge):
			outcome = OutcomeRejected
		case errors.Is(err, ErrTimeout):
			outcome = OutcomeTimeout
		case err != nil || (res != nil && res.Error != ""):
			outcome = OutcomeError
		}
		r.Observer.ObserveExecution(outcome, time.Since(start))
	}()

	if len(source) > r.maxSource() {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrSourceTooLarge, len(source), r.maxSource())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)
	res = &Result{Logs: []LogLine{}}
	c := &capture{vm: vm, res: res, max: r.maxLogs(), maxBytes: r.maxLogBytes()}
	if err := c.install(); err != nil {
		return nil, fmt.Errorf("sandbox: install console: %w", err)
	}
	deadline := start.Add(r.timeout())
	t := &timers{vm: vm, halt: func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		return nil
	}}
	if err := t.install(); err != nil {
		return nil, fmt.Errorf("sandbox: install timers: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	timer := time.NewTimer(r.timeout())
	defer timer.Stop()
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, runErr := vm.RunString(source)
	if runErr == nil {
		runErr = t.drain()
	}
	if runErr == nil && fn != "" {
		val, runErr = callGlobal(vm, fn, args)
		if runErr == nil {
			runErr = t.drain()
		}
	}
	res.Duration = time.Since(start)

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			return res, stopCause(interrupted.Value())
		}
		var halted haltError
		if errors.As(runErr, &halted) {
			return res, stopCause(halted.cause)
		}
		res.Error = scriptError(runErr)
		return res, nil
	}
	res.Value, res.JSON = export(vm, val)
	if len(res.JSON) > maxValueBytes {
		res.Value, res.JSON = nil, ""
		res.Truncated = true
	}
	return res, nil
}

// stopCause maps the reason an execution was stopped to the error returned to the caller.
func stopCause(v any) error {
	switch v := v.(type) {
	case error:
		if errors.Is(v, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeout, v)
		}
		return v
	default:
		return ErrTimeout
	}
}

// haltError stops the timer loop between callbacks when the deadline passes or the context ends.
type haltError struct{ cause error }

func (e haltError) Error() string { return e.cause.Error() }

type notAFunctionError struct{ name string }

func (e notAFunctionError) Error() string { return e.name + " is not a function" }

func callGlobal(vm *goja.Runtime, fn string, args []any) (goja.Value, error) {
	f, ok := goja.AssertFunction(vm.Get(fn))
	if !ok {
		return nil, notAFunctionError{name: fn}
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = vm.ToValue(a)
	}
	return f(goja.Undefined(), vals...)
}

func scriptError(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if obj, ok := exc.Value().(*goja.Object); ok {
			name, msg := obj.Get("name"), obj.Get("message")
			if msg != nil && !goja.IsUndefined(msg) {
				if name != nil && !goja.IsUndefined(name) {
					return name.String() + ": " + msg.String()
				}
				return msg.String()
			}
		}
		return exc.Value().String()
	}
	return err.Error()
}

func export(vm *goja.Runtime, v goja.Value) (any, string) {
	if v == nil || goja.IsUndefined(v) {
		return nil, ""
	}
	s, err := stringify(vm, v, false)
	if err != nil {
		s = ""
	}
	return v.Export(), s
}

// stringify calls JSON.stringify inside the VM, indenting by two spaces when pretty is set.
// It returns "" with a nil error when JSON.stringify yields undefined.
func stringify(vm *goja.Runtime, v goja.Value, pretty bool) (string, error) {
	stringifyFn, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return "", errors.New("sandbox: JSON.stringify unavailable")
	}
	args := []goja.Value{v}
	if pretty {
		args = append(args, goja.Null(), vm.ToValue(2))
	}
	out, err := stringifyFn(goja.Undefined(), args...)
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(out) {
		return "", nil
	}
	return out.String(), nil
}

// timers provides setTimeout and setInterval on a virtual clock; callbacks run after the script in due order.
// Timeouts and intervals share one id space, so either clear function cancels either kind.
type timers struct {
	vm      *goja.Runtime
	halt    func() error
	nextID  int64
	now     int64
	pending []*pendingTimer
	current *pendingTimer
}

type pendingTimer struct {
	id      int64
	due     int64
	every   int64
	cleared bool
	fn      goja.Callable
	arg     []goja.Value
}

func (t *timers) install() error {
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout":    func(call goja.FunctionCall) goja.Value { return t.schedule("setTimeout", call, false) },
		"setInterval":   func(call goja.FunctionCall) goja.Value { return t.schedule("setInterval", call, true) },
		"clearTimeout":  t.clear,
		"clearInterval": t.clear,
	} {
		if err := t.vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func (t *timers) schedule(name string, call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(t.vm.NewTypeError(name + " callback must be a function"))
	}
	if len(t.pending) >= maxTimers {
		panic(t.vm.NewGoError(fmt.Errorf("too many pending timers (max %d)", maxTimers)))
	}
	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}
	var rest []goja.Value
	if len(call.Arguments) > 2 {
		rest = call.Arguments[2:]
	}
	t.nextID++
	p := &pendingTimer{id: t.nextID, due: t.now + delay, fn: fn, arg: rest}
	if repeat {
		// The virtual clock must advance between repeats or later timers would never fire.
		p.every = max(delay, 1)
		p.due = t.now + p.every
	}
	t.pending = append(t.pending, p)
	return t.vm.ToValue(t.nextID)
}

func (t *timers) clear(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t.current != nil && t.current.id == id {
		t.current.cleared = true
	}
	for i, p := range t.pending {
		if p.id == id {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

// drain runs pending timers, earliest due first and in creation order for ties, until none remain.
// Intervals are rescheduled after each run until cleared, so a loop that never clears one ends at the deadline.
func (t *timers) drain() error {
	for len(t.pending) > 0 {
		if t.halt != nil {
			if err := t.halt(); err != nil {
				return haltError{cause: err}
			}
		}
		sort.SliceStable(t.pending, func(i, j int) bool { return t.pending[i].due < t.pending[j].due })
		next := t.pending[0]
		t.pending = t.pending[1:]
		t.now = next.due
		t.current = next
		_, err := next.fn(goja.Undefined(), next.arg...)
		t.current = nil
		if err != nil {
			return err
		}
		if next.every > 0 && !next.cleared {
			next.due = t.now + next.every
			t.pending = append(t.pending, next)
		}
	}
	return nil
}
