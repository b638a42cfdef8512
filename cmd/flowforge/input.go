package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// readDocument decodes a YAML or JSON file into v. "-" reads standard input.
func readDocument(path string, v any) error {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	err = yaml.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

func writeJSON(command *cli.Command, v any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
