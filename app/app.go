package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"go.hackfix.me/forage/app/cli"
	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// App is the application.
type App struct {
	ctx      *actx.Context
	name     string
	logLevel *slog.LevelVar

	Exit func(int)
}

// New initializes a new application. name is the command name shown in help
// output, usually the value of os.Args[0].
func New(name string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		Version: version,
		Logger:  slog.Default(),
	}
	app := &App{
		ctx:      defaultCtx,
		name:     filepath.Base(name),
		logLevel: &slog.LevelVar{},
		Exit:     func(int) {},
	}

	for _, opt := range opts {
		opt(app)
	}

	return app, nil
}

// Run parses the command-line arguments and runs the selected command.
func (app *App) Run(args []string) error {
	c := &cli.CLI{}
	if err := c.Setup(app.ctx, app.name, app.Exit); err != nil {
		return err
	}
	if err := c.Parse(args); err != nil {
		return err
	}

	app.logLevel.Set(c.LogLevel)

	if c.NeedsStorage() {
		closeStorage, err := app.initStorage(c)
		if err != nil {
			return err
		}
		defer closeStorage()
	}

	return c.Execute(app.ctx)
}

// FatalIfErrorf terminates the application with an error message if err != nil.
func (app *App) FatalIfErrorf(err error, args ...any) {
	if err == nil {
		return
	}

	var herr aerrors.WithHint
	if errors.As(err, &herr) && herr.Hint() != "" {
		args = append(args, "hint", herr.Hint())
	}
	app.ctx.Logger.Error(err.Error(), args...)
	app.Exit(1)
}
