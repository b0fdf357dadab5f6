package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// formatValue returns the printable form of a stored value. Strings are
// returned as they are, and other values as JSON.
func formatValue(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}

	out, err := json.Marshal(val)
	if err != nil {
		return "", fmt.Errorf("failed encoding value: %w", err)
	}

	return string(out), nil
}

func printValue(w io.Writer, val any) error {
	out, err := formatValue(val)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)

	return err
}
