package app

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	actx "go.hackfix.me/forage/app/context"
	"go.hackfix.me/forage/store/memory"
)

type testApp struct {
	*App
	stdin          *io.PipeWriter
	stdout, stderr *hookWriter
	env            *mockEnv
	store          *memory.Memory
}

func newTestApp(ctx context.Context, options ...Option) (*testApp, error) {
	var (
		stdinR, stdinW   = io.Pipe()
		stdoutW, stderrW = &hookWriter{}, &hookWriter{}
		st               = memory.New()
	)

	env := &mockEnv{env: map[string]string{}}
	opts := []Option{
		WithContext(ctx),
		WithFDs(stdinR, stdoutW, stderrW),
		WithFS(memoryfs.New()),
		WithLogger(false, false),
		WithEnv(env),
		WithStore(st),
	}
	opts = append(opts, options...)
	app, err := New("/forage", opts...)
	if err != nil {
		return nil, err
	}

	return &testApp{
		App: app, stdout: stdoutW, stderr: stderrW,
		stdin: stdinW, env: env, store: st,
	}, nil
}

// Run runs the command, and makes its output available in the stdout and
// stderr buffers. The output of previous commands is discarded.
func (ta *testApp) Run(args ...string) error {
	err := ta.App.Run(args)
	ta.stdout.flush()
	ta.stderr.flush()

	return err
}

type mockEnv struct {
	mx  sync.RWMutex
	env map[string]string
}

var _ actx.Environment = &mockEnv{}

func (me *mockEnv) Get(key string) string {
	me.mx.RLock()
	defer me.mx.RUnlock()
	return me.env[key]
}

func (me *mockEnv) Set(key, val string) error {
	me.mx.Lock()
	defer me.mx.Unlock()
	me.env[key] = val
	return nil
}

// hookWriter is an io.Writer that buffers the output of a command, and
// notifies listeners when specific text is written.
type hookWriter struct {
	mx    sync.Mutex
	buf   bytes.Buffer // output of the last command, read by tests
	tmp   bytes.Buffer // written to during each command
	hooks []writeHook
}

type writeHook struct {
	rx       *regexp.Regexp
	matchIdx int
	ch       chan string
}

// waitFor returns a channel that receives the element at matchIdx of the first
// match of the rxPat regex pattern in written data.
func (hw *hookWriter) waitFor(rxPat string, matchIdx int) <-chan string {
	ch := make(chan string, 1)
	hw.mx.Lock()
	hw.hooks = append(hw.hooks, writeHook{
		rx: regexp.MustCompile(rxPat), matchIdx: matchIdx, ch: ch,
	})
	hw.mx.Unlock()

	return ch
}

func (hw *hookWriter) Write(p []byte) (int, error) {
	hw.mx.Lock()
	defer hw.mx.Unlock()

	pending := hw.hooks[:0]
	for _, h := range hw.hooks {
		match := h.rx.FindSubmatch(p)
		if len(match) > h.matchIdx {
			h.ch <- string(match[h.matchIdx])
			continue
		}
		pending = append(pending, h)
	}
	hw.hooks = pending

	return hw.tmp.Write(p)
}

func (hw *hookWriter) flush() {
	hw.mx.Lock()
	defer hw.mx.Unlock()
	hw.buf.Reset()
	_, _ = hw.buf.ReadFrom(&hw.tmp)
}

func (hw *hookWriter) String() string {
	hw.mx.Lock()
	defer hw.mx.Unlock()
	return hw.buf.String()
}

// newTestContext returns a context that times out after timeout, and an
// assertion handling function that cancels the context prematurely and fails
// the test if the assertion fails. This is done to avoid waiting for the
// context timeout to be reached.
func newTestContext(t *testing.T, timeout time.Duration) (
	ctx context.Context, cancelCtx func(), assertHandler func(bool),
) {
	ctx, cancelCtx = context.WithTimeout(context.Background(), timeout)
	assertHandler = func(success bool) {
		if !success {
			cancelCtx()
			t.FailNow()
		}
	}

	return
}
