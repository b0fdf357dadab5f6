package cli

import (
	"fmt"

	actx "go.hackfix.me/forage/app/context"
)

// The Version command prints the app version.
type Version struct{}

// Run the version command.
func (c *Version) Run(appCtx *actx.Context) error {
	fmt.Fprintf(appCtx.Stdout, "forage %s\n", appCtx.Version)
	return nil
}
