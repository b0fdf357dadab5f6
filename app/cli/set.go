package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	actx "go.hackfix.me/forage/app/context"
	aerrors "go.hackfix.me/forage/app/errors"
)

// The Set command stores the value of a key.
type Set struct {
	Key   string `arg:"" help:"The key that identifies the value."`
	Value string `arg:"" optional:"" help:"The value. If omitted, it's read from stdin."`

	JSON bool `help:"Parse the value as JSON, and store the decoded value instead of the string."`
}

// Run the set command.
func (c *Set) Run(appCtx *actx.Context) error {
	value := c.Value
	if value == "" {
		data, err := io.ReadAll(appCtx.Stdin)
		if err != nil {
			return aerrors.NewRuntimeError("failed reading value from stdin", err, "")
		}
		value = strings.TrimSuffix(string(data), "\n")
	}

	var val any = value
	if c.JSON {
		if err := json.Unmarshal([]byte(value), &val); err != nil {
			return aerrors.NewRuntimeError("failed parsing value", err,
				"Make sure the value is valid JSON, or omit the --json flag.")
		}
	}

	if _, err := appCtx.Storage.SetItem(appCtx.Ctx, c.Key, val); err != nil {
		return aerrors.NewRuntimeError(fmt.Sprintf("failed setting key '%s'", c.Key), err, "")
	}

	return nil
}
