package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	actx "go.hackfix.me/forage/app/context"
	"go.hackfix.me/forage/web/server"
)

// Serve starts the web server.
type Serve struct {
	Address string `help:"[host]:port to listen on." default:":2020"`
}

// Run the serve command. The server is shut down when the app context is
// done.
func (s *Serve) Run(appCtx *actx.Context) error {
	srv := server.New(appCtx, s.Address)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-appCtx.Ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appCtx.Logger.Info("stopped web server")

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
