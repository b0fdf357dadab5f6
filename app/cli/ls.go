package cli

import (
	"fmt"
	"strings"

	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// The Ls command prints keys in insertion order.
type Ls struct {
	KeyPrefix string `arg:"" optional:"" help:"An optional key prefix."`
}

// Run the ls command.
func (c *Ls) Run(appCtx *actx.Context) error {
	keys, err := appCtx.Storage.Keys(appCtx.Ctx)
	if err != nil {
		return aerrors.NewRuntimeError("failed listing keys", err, "")
	}

	for _, key := range keys {
		if !strings.HasPrefix(key, c.KeyPrefix) {
			continue
		}
		fmt.Fprintln(appCtx.Stdout, key)
	}

	return nil
}

// The Len command prints the number of stored keys.
type Len struct{}

// Run the len command.
func (c *Len) Run(appCtx *actx.Context) error {
	n, err := appCtx.Storage.Length(appCtx.Ctx)
	if err != nil {
		return aerrors.NewRuntimeError("failed counting keys", err, "")
	}
	fmt.Fprintln(appCtx.Stdout, n)

	return nil
}
