package cli

import (
	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// The Clear command removes all keys of the storage instance. Keys of other
// instances sharing the same store are kept.
type Clear struct{}

// Run the clear command.
func (c *Clear) Run(appCtx *actx.Context) error {
	if err := appCtx.Storage.Clear(appCtx.Ctx); err != nil {
		return aerrors.NewRuntimeError("failed clearing storage", err, "")
	}
	appCtx.Logger.Debug("cleared storage", "name", appCtx.Storage.Config().Name)

	return nil
}
