package cli

import (
	"fmt"

	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// The Rm command deletes a key.
type Rm struct {
	Key string `arg:"" help:"The key to delete."`
}

// Run the rm command.
func (c *Rm) Run(appCtx *actx.Context) error {
	if err := appCtx.Storage.RemoveItem(appCtx.Ctx, c.Key); err != nil {
		return aerrors.NewRuntimeError(fmt.Sprintf("failed removing key '%s'", c.Key), err, "")
	}

	return nil
}
