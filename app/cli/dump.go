package cli

import (
	"fmt"

	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// The Dump command prints all entries, one per line, as their ordinal, key
// and value separated by a tab.
type Dump struct {
	Limit int `help:"Stop after this many entries. 0 prints all of them."`
}

// Run the dump command.
func (c *Dump) Run(appCtx *actx.Context) error {
	var printErr error
	_, err := appCtx.Storage.Iterate(appCtx.Ctx, func(value any, key string, ordinal int) (any, bool) {
		out, err := formatValue(value)
		if err != nil {
			printErr = fmt.Errorf("key '%s': %w", key, err)
			return nil, true
		}
		fmt.Fprintf(appCtx.Stdout, "%d\t%s\t%s\n", ordinal, key, out)

		return nil, c.Limit > 0 && ordinal >= c.Limit
	})
	if err != nil {
		return aerrors.NewRuntimeError("failed iterating storage", err, "")
	}

	return printErr
}
