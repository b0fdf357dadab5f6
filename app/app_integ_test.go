package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testEncKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestAppStore(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	app, err := newTestApp(tctx)
	h(assert.NoError(t, err))

	t.Run("ok/set_get", func(t *testing.T) {
		err = app.Run("set", "key", "testvalue")
		h(assert.NoError(t, err))

		err = app.Run("set", "key2", "testvalue2")
		h(assert.NoError(t, err))

		err = app.Run("get", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "testvalue\n", app.stdout.String()))

		err = app.Run("get", "key2")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "testvalue2\n", app.stdout.String()))

		// Values are stored as JSON under the prefixed key.
		raw, err := app.store.Get(tctx, "forage/key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, `"testvalue"`, string(raw)))
	})

	t.Run("ok/set_json", func(t *testing.T) {
		err = app.Run("set", "--json", "obj", `{"b": [1, true], "a": null}`)
		h(assert.NoError(t, err))

		err = app.Run("get", "obj")
		h(assert.NoError(t, err))
		h(assert.Equal(t, `{"a":null,"b":[1,true]}`+"\n", app.stdout.String()))
	})

	t.Run("ok/ls_len_dump", func(t *testing.T) {
		err = app.Run("ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\nkey2\nobj\n", app.stdout.String()))

		err = app.Run("ls", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\nkey2\n", app.stdout.String()))

		err = app.Run("len")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "3\n", app.stdout.String()))

		err = app.Run("dump")
		h(assert.NoError(t, err))
		want := "1\tkey\ttestvalue\n" +
			"2\tkey2\ttestvalue2\n" +
			"3\tobj\t{\"a\":null,\"b\":[1,true]}\n"
		h(assert.Equal(t, want, app.stdout.String()))

		err = app.Run("dump", "--limit=1")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "1\tkey\ttestvalue\n", app.stdout.String()))
	})

	t.Run("ok/name_isolation", func(t *testing.T) {
		err = app.Run("--name=other", "set", "key", "othervalue")
		h(assert.NoError(t, err))

		err = app.Run("--name=other", "ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\n", app.stdout.String()))

		err = app.Run("--name=other", "clear")
		h(assert.NoError(t, err))

		err = app.Run("--name=other", "len")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "0\n", app.stdout.String()))

		err = app.Run("len")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "3\n", app.stdout.String()))
	})

	t.Run("ok/rm_ls", func(t *testing.T) {
		err = app.Run("rm", "key2")
		h(assert.NoError(t, err))

		// Removing a missing key succeeds.
		err = app.Run("rm", "key2")
		h(assert.NoError(t, err))

		err = app.Run("ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\nobj\n", app.stdout.String()))
	})

	t.Run("err/missing_key", func(t *testing.T) {
		err = app.Run("get", "missingkey")
		h(assert.EqualError(t, err, "key 'missingkey' doesn't exist"))
		h(assert.Equal(t, "", app.stdout.String()))
	})

	t.Run("err/invalid_json", func(t *testing.T) {
		err = app.Run("set", "--json", "key", "{invalid")
		h(assert.ErrorContains(t, err, "failed parsing value"))
	})

	t.Run("ok/clear", func(t *testing.T) {
		err = app.Run("clear")
		h(assert.NoError(t, err))

		err = app.Run("ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "", app.stdout.String()))
	})
}

func TestAppSerialization(t *testing.T) {
	t.Parallel()

	t.Run("ok/none", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, h := newTestContext(t, 5*time.Second)
		defer cancel()

		app, err := newTestApp(tctx)
		h(assert.NoError(t, err))

		err = app.Run("--serialization=none", "set", "key", `{"test":"value"}`)
		h(assert.NoError(t, err))

		raw, err := app.store.Get(tctx, "forage/key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, `{"test":"value"}`, string(raw)))

		err = app.Run("--serialization=none", "get", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, `{"test":"value"}`+"\n", app.stdout.String()))

		err = app.Run("--serialization=none", "set", "--json", "key", `{"test":"value"}`)
		h(assert.ErrorContains(t, err, "unsupported value"))
	})

	t.Run("ok/sealed", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, h := newTestContext(t, 5*time.Second)
		defer cancel()

		app, err := newTestApp(tctx)
		h(assert.NoError(t, err))

		sealed := []string{"--serialization=sealed", "--encryption-key=" + testEncKey}

		err = app.Run(append(sealed, "set", "key", "secretvalue")...)
		h(assert.NoError(t, err))

		raw, err := app.store.Get(tctx, "forage/key")
		h(assert.NoError(t, err))
		h(assert.NotContains(t, string(raw), "secretvalue"))

		err = app.Run(append(sealed, "get", "key")...)
		h(assert.NoError(t, err))
		h(assert.Equal(t, "secretvalue\n", app.stdout.String()))

		wrongKey := "--encryption-key=" + strings.Repeat("ff", 32)
		err = app.Run("--serialization=sealed", wrongKey, "get", "key")
		h(assert.ErrorContains(t, err, "failed getting key 'key'"))
	})

	t.Run("err/sealed_no_key", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, h := newTestContext(t, 5*time.Second)
		defer cancel()

		app, err := newTestApp(tctx)
		h(assert.NoError(t, err))

		err = app.Run("--serialization=sealed", "set", "key", "value")
		h(assert.EqualError(t, err, "the sealed serialization requires an encryption key"))

		err = app.Run("--serialization=sealed", "--encryption-key=abcd", "set", "key", "value")
		h(assert.EqualError(t, err, "invalid encryption key: expected key length of 32; got 2"))
	})
}

func TestAppFileStores(t *testing.T) {
	t.Parallel()

	for _, storeName := range []string{"badger", "bolt", "sqlite"} {
		storeName := storeName
		t.Run(storeName, func(t *testing.T) {
			t.Parallel()

			tctx, cancel, h := newTestContext(t, 10*time.Second)
			defer cancel()

			// Stores are opened from the flags and closed after each command.
			app, err := newTestApp(tctx, WithStore(nil))
			h(assert.NoError(t, err))

			flags := []string{"--store=" + storeName, "--data-dir=" + t.TempDir()}

			err = app.Run(append(flags, "set", "b", "1")...)
			h(assert.NoError(t, err))
			err = app.Run(append(flags, "set", "a", "2")...)
			h(assert.NoError(t, err))

			err = app.Run(append(flags, "dump")...)
			h(assert.NoError(t, err))
			h(assert.Equal(t, "1\tb\t1\n2\ta\t2\n", app.stdout.String()))

			err = app.Run(append(flags, "rm", "b")...)
			h(assert.NoError(t, err))

			err = app.Run(append(flags, "ls")...)
			h(assert.NoError(t, err))
			h(assert.Equal(t, "a\n", app.stdout.String()))
		})
	}
}

func TestAppServeRemote(t *testing.T) {
	t.Parallel()

	// wg.Wait must be deferred before the test context cancellation (so that
	// it's called after it when the function returns) to avoid waiting for the
	// context timeout to be reached.
	var wg sync.WaitGroup
	defer wg.Wait()

	timeout := 5 * time.Second
	tctx, cancel, h := newTestContext(t, timeout)
	defer cancel()

	srvCtx, stopServer := context.WithCancel(tctx)
	defer stopServer()

	// app1 serves its storage over HTTP
	app1, err := newTestApp(srvCtx)
	h(assert.NoError(t, err))

	err = app1.Run("set", "key", "testvalue")
	h(assert.NoError(t, err))

	addrCh := app1.stderr.waitFor(`started web server.*address=(\S+)`, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr := app1.Run("serve", "--address=127.0.0.1:0")
		h(assert.NoError(t, serveErr))
	}()

	var srvAddress string
	select {
	case srvAddress = <-addrCh:
	case <-tctx.Done():
		t.Fatalf("timed out after %s", timeout)
	}

	// app2 uses app1 as its storage
	app2, err := newTestApp(tctx)
	h(assert.NoError(t, err))
	remote := fmt.Sprintf("--remote=%s", srvAddress)

	// The key doesn't exist for app2 locally...
	err = app2.Run("get", "key")
	h(assert.EqualError(t, err, "key 'key' doesn't exist"))

	// ... but it does exist in the remote node.
	err = app2.Run(remote, "get", "key")
	h(assert.NoError(t, err))
	h(assert.Equal(t, "testvalue\n", app2.stdout.String()))

	err = app2.Run(remote, "set", "--json", "key2", `{"n": 1}`)
	h(assert.NoError(t, err))

	err = app2.Run(remote, "dump")
	h(assert.NoError(t, err))
	h(assert.Equal(t, "1\tkey\ttestvalue\n2\tkey2\t{\"n\":1}\n", app2.stdout.String()))

	err = app2.Run(remote, "rm", "key")
	h(assert.NoError(t, err))

	err = app2.Run(remote, "get", "key")
	h(assert.EqualError(t, err, "key 'key' doesn't exist"))

	err = app2.Run(remote, "len")
	h(assert.NoError(t, err))
	h(assert.Equal(t, "1\n", app2.stdout.String()))

	stopServer()
	wg.Wait()

	h(assert.Contains(t, app1.stderr.String(), "GET /api/v1/items"))
	h(assert.Contains(t, app1.stderr.String(), "stopped web server"))
}

func TestAppVersion(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 3*time.Second)
	defer cancel()

	app, err := newTestApp(tctx, WithStore(nil))
	h(assert.NoError(t, err))

	// No store is opened for the version command.
	err = app.Run("--store=redis", "--redis-address=127.0.0.1:1", "version")
	h(assert.NoError(t, err))
	h(assert.Regexp(t, `^forage v\d+\.\d+\.\d+`, app.stdout.String()))
}

func TestAppLogLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		args   []string
		expLog string
		expErr string
	}{
		{
			name: "default",
			args: []string{"ls"},
		},
		{
			name:   "debug",
			args:   []string{"--log-level=debug", "ls"},
			expLog: "opened storage",
		},
		{
			name:   "invalid",
			args:   []string{"--log-level=invalid", "ls"},
			expErr: `--log-level: slog: level string "invalid": unknown name`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tctx, cancel, h := newTestContext(t, 3*time.Second)
			defer cancel()

			app, err := newTestApp(tctx)
			h(assert.NoError(t, err))

			err = app.Run(tc.args...)
			if tc.expErr != "" {
				h(assert.EqualError(t, err, tc.expErr))
			} else {
				h(assert.NoError(t, err))
			}

			if tc.expLog != "" {
				h(assert.Contains(t, app.stderr.String(), tc.expLog))
			} else {
				h(assert.Equal(t, "", app.stderr.String()))
			}
		})
	}
}

func TestAppEnv(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	app, err := newTestApp(tctx)
	h(assert.NoError(t, err))

	h(assert.NoError(t, app.env.Set("FORAGE_NAME", "fromenv")))
	h(assert.NoError(t, app.env.Set("FORAGE_SERIALIZATION", "none")))

	err = app.Run("set", "key", "value")
	h(assert.NoError(t, err))

	raw, err := app.store.Get(tctx, "fromenv/key")
	h(assert.NoError(t, err))
	h(assert.Equal(t, "value", string(raw)))

	// Flags take precedence over the environment.
	err = app.Run("--name=fromflag", "set", "key", "value2")
	h(assert.NoError(t, err))

	raw, err = app.store.Get(tctx, "fromflag/key")
	h(assert.NoError(t, err))
	h(assert.Equal(t, "value2", string(raw)))

	keys, err := app.store.Keys(tctx, "")
	h(assert.NoError(t, err))
	h(assert.Equal(t, []string{"fromenv/key", "fromflag/key"}, keys))
}

func TestAppSetStdin(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	app, err := newTestApp(tctx)
	h(assert.NoError(t, err))

	go func() {
		_, _ = io.WriteString(app.stdin, `{"piped": true}`+"\n")
		_ = app.stdin.Close()
	}()

	err = app.Run("set", "--json", "key")
	h(assert.NoError(t, err))

	err = app.Run("get", "key")
	h(assert.NoError(t, err))
	h(assert.Equal(t, `{"piped":true}`+"\n", app.stdout.String()))
}
