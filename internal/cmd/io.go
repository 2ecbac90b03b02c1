package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// stdinArg selects standard input as a command's JSON source.
const stdinArg = "-"

// readJSONInput decodes JSON from the file named by arg, or stdin for "-".
// Unknown fields are rejected.
func readJSONInput(cmd *cobra.Command, arg string, v any) error {
	return decodeInput(cmd, arg, v, true)
}

// readLenientJSONInput is readJSONInput without the unknown field check.
// Snapshot documents from older clients carry keys this build dropped.
func readLenientJSONInput(cmd *cobra.Command, arg string, v any) error {
	return decodeInput(cmd, arg, v, false)
}

func decodeInput(cmd *cobra.Command, arg string, v any, strict bool) error {
	var r io.Reader
	if arg == stdinArg {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(arg)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", arg, err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", inputName(arg), err)
	}
	return nil
}

func inputName(arg string) string {
	if arg == stdinArg {
		return "stdin"
	}
	return arg
}

// marshalJSON renders v as indented JSON with a trailing newline.
func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// writeJSON prints v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
