package app

import (
	"fmt"
	"path/filepath"

	"go.hackfix.me/forage/app/cli"
	aerrors "go.hackfix.me/forage/app/errors"
	"go.hackfix.me/forage/crypto"
	"go.hackfix.me/forage/driver"
	"go.hackfix.me/forage/facade"
	"go.hackfix.me/forage/serializer"
	"go.hackfix.me/forage/store"
	"go.hackfix.me/forage/store/badger"
	"go.hackfix.me/forage/store/bolt"
	"go.hackfix.me/forage/store/memory"
	"go.hackfix.me/forage/store/redis"
	"go.hackfix.me/forage/store/sqlite"
	"go.hackfix.me/forage/web/client"
)

const encKeyHint = "Generate a key with 'openssl rand -hex 32', and pass it with --encryption-key or FORAGE_ENCRYPTION_KEY."

// initStorage sets up the facade used by commands, with the driver selected
// by the CLI flags. The returned function releases the backing store if it
// was opened here.
func (app *App) initStorage(c *cli.CLI) (closeFn func(), err error) {
	closeFn = func() {}
	f := facade.New(facade.Config{Name: c.Name}, facade.WithLogger(app.ctx.Logger))

	var drv facade.Driver
	if c.Remote != "" {
		drv, err = client.New(c.Remote)
		if err != nil {
			return nil, aerrors.NewRuntimeError("failed creating API client", err, "")
		}
	} else {
		var encKey *[crypto.KeySize]byte
		if c.EncryptionKey != "" {
			encKey, err = crypto.DecodeHexKey(c.EncryptionKey)
			if err != nil {
				return nil, aerrors.NewRuntimeError("invalid encryption key", err, encKeyHint)
			}
		}

		var ser serializer.Serializer
		ser, err = newSerializer(c.Serialization, encKey)
		if err != nil {
			return nil, err
		}

		if app.ctx.Store == nil {
			var st store.Store
			st, err = app.openStore(c, encKey)
			if err != nil {
				return nil, aerrors.NewRuntimeError(
					fmt.Sprintf("failed opening %s store", c.Store), err, "")
			}
			app.ctx.Store = st
			closeFn = func() {
				if err := app.ctx.Store.Close(); err != nil {
					app.ctx.Logger.Warn("failed closing store", "error", err)
				}
				app.ctx.Store = nil
			}
		}

		drv, err = driver.WithSerialization(app.ctx.Store, ser, driver.WithName(c.Store))
		if err != nil {
			closeFn()
			return nil, err
		}
	}

	if err = f.DefineDriver(drv); err != nil {
		closeFn()
		return nil, err
	}
	if err = f.SetDriver(app.ctx.Ctx, drv.Name()); err != nil {
		closeFn()
		return nil, aerrors.NewRuntimeError("failed setting storage driver", err, "")
	}

	app.ctx.Storage = f
	app.ctx.Logger.Debug("opened storage",
		"driver", f.Driver(), "name", c.Name, "serialization", c.Serialization)

	return closeFn, nil
}

// openStore opens the backing store selected with the --store flag. File-based
// stores are kept under the data directory.
func (app *App) openStore(c *cli.CLI, encKey *[crypto.KeySize]byte) (store.Store, error) {
	if c.Store != "memory" && c.Store != "redis" {
		if err := app.ctx.FS.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed creating data directory: %w", err)
		}
	}

	switch c.Store {
	case "memory":
		return memory.New(), nil
	case "badger":
		opts := []badger.Option{badger.WithLogger(app.ctx.Logger)}
		if encKey != nil {
			opts = append(opts, badger.WithEncryptionKey(encKey[:]))
		}
		return badger.Open(filepath.Join(c.DataDir, "badger"), opts...)
	case "bolt":
		return bolt.Open(filepath.Join(c.DataDir, "forage.bolt"))
	case "sqlite":
		return sqlite.Open(app.ctx.Ctx, filepath.Join(c.DataDir, "forage.db"),
			sqlite.WithLogger(app.ctx.Logger))
	case "redis":
		opts := redis.DefaultOptions()
		opts.Address = c.Redis.Address
		opts.Password = c.Redis.Password
		opts.DB = c.Redis.DB
		opts.Logger = app.ctx.Logger
		if c.Redis.TLS {
			tlsConfig, err := crypto.ClientTLSConfig(c.Redis.Address)
			if err != nil {
				return nil, err
			}
			opts.TLSConfig = tlsConfig
		}
		return redis.Open(app.ctx.Ctx, opts)
	default:
		return nil, fmt.Errorf("unknown store '%s'", c.Store)
	}
}

func newSerializer(kind string, encKey *[crypto.KeySize]byte) (serializer.Serializer, error) {
	switch kind {
	case "none":
		return serializer.Passthrough{}, nil
	case "default":
		return serializer.Default(), nil
	case "sealed":
		if encKey == nil {
			return nil, aerrors.NewRuntimeError(
				"the sealed serialization requires an encryption key", nil, encKeyHint)
		}
		return serializer.Sealed(serializer.Default(), encKey), nil
	default:
		return nil, fmt.Errorf("unknown serialization '%s'", kind)
	}
}
