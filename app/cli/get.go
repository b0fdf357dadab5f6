package cli

import (
	"fmt"

	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// The Get command retrieves and prints the value of a key.
type Get struct {
	Key string `arg:"" help:"The key associated with the value."`
}

// Run the get command.
func (c *Get) Run(appCtx *actx.Context) error {
	val, err := appCtx.Storage.GetItem(appCtx.Ctx, c.Key)
	if err != nil {
		return aerrors.NewRuntimeError(fmt.Sprintf("failed getting key '%s'", c.Key), err, "")
	}
	if val == nil {
		return fmt.Errorf("key '%s' doesn't exist", c.Key)
	}

	return printValue(appCtx.Stdout, val)
}
