package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/restwrap/internal/constants"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// renderValue writes a decoded body in the configured output format. JSON is
// indented when writing to a terminal and compact otherwise, so it pipes well.
func renderValue(out io.Writer, value interface{}) error {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case constants.FormatJSON, "", constants.FormatTable:
		encoder := json.NewEncoder(out)
		if isTerminal(out) {
			encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))
		}

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("encoding data to JSON: %w", err)
		}
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(constants.JSONIndentSize)

		err := encoder.Encode(yamlValue(value))
		if err != nil {
			return fmt.Errorf("encoding data to YAML: %w", err)
		}

		return encoder.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return nil
}

// yamlValue replaces json.Number leaves with int64 or float64 so YAML renders
// them as plain scalars instead of quoted strings.
func yamlValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}

		if f, err := typed.Float64(); err == nil {
			return f
		}

		return typed.String()
	case map[string]interface{}:
		converted := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			converted[key] = yamlValue(item)
		}

		return converted
	case []interface{}:
		converted := make([]interface{}, len(typed))
		for i, item := range typed {
			converted[i] = yamlValue(item)
		}

		return converted
	default:
		return value
	}
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)

	return ok && term.IsTerminal(int(file.Fd())) //nolint:gosec // file descriptors fit in int
}
