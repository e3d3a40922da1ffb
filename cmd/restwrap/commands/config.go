package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/fivetwenty-io/restwrap/internal/constants"
	"github.com/fivetwenty-io/restwrap/pkg/restclient"
	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/spf13/viper"
)

// Static errors for err113 compliance.
var (
	ErrInvalidKeyValue   = errors.New("expected key=value")
	ErrInvalidHeader     = errors.New("expected 'Name: value'")
	ErrInvalidBody       = errors.New("request body is not valid JSON")
	ErrRequestFailed     = errors.New("request failed")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// loadClientConfig reads the client configuration from viper: config file,
// RESTWRAP_* environment variables and bound flags.
func loadClientConfig() (*restclient.Config, error) {
	config := &restclient.Config{}

	err := viper.Unmarshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if viper.GetBool("verbose") {
		config.Logger = newStderrLogger(os.Stderr)
	}

	return config, nil
}

func createClient() (*restclient.Client, error) {
	config, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return restclient.New(config)
}

// loadRegistry loads the resource mapping without building a transport.
func loadRegistry() (*restwrap.Registry, error) {
	config, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	if config.ResourcesFile == "" {
		return nil, restclient.ErrResourcesRequired
	}

	return restclient.LoadResources(config.ResourcesFile)
}

func parseKeyValues(pairs []string) (restwrap.Params, error) {
	params := restwrap.Params{}

	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", constants.KeyValueSplitParts)
		if len(parts) != constants.KeyValueSplitParts || parts[0] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKeyValue, pair)
		}

		params[parts[0]] = parts[1]
	}

	return params, nil
}

func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))

	for _, value := range values {
		parts := strings.SplitN(value, ":", constants.KeyValueSplitParts)
		if len(parts) != constants.KeyValueSplitParts || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, value)
		}

		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return headers, nil
}

// stderrLogger writes "LEVEL msg key=value ..." lines. Levels are colored
// when out is a terminal.
type stderrLogger struct {
	out    io.Writer
	colors map[string]*color.Color
}

func newStderrLogger(out io.Writer) *stderrLogger {
	colors := map[string]*color.Color{
		"DEBUG": color.New(color.FgCyan),
		"INFO":  color.New(color.FgGreen),
		"WARN":  color.New(color.FgYellow, color.Bold),
		"ERROR": color.New(color.FgRed, color.Bold),
	}

	if !isTerminal(out) {
		for _, levelColor := range colors {
			levelColor.DisableColor()
		}
	}

	return &stderrLogger{out: out, colors: colors}
}

func (l *stderrLogger) Debug(msg string, fields map[string]interface{}) {
	l.write("DEBUG", msg, fields)
}

func (l *stderrLogger) Info(msg string, fields map[string]interface{}) {
	l.write("INFO", msg, fields)
}

func (l *stderrLogger) Warn(msg string, fields map[string]interface{}) {
	l.write("WARN", msg, fields)
}

func (l *stderrLogger) Error(msg string, fields map[string]interface{}) {
	l.write("ERROR", msg, fields)
}

func (l *stderrLogger) write(level, msg string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var line strings.Builder

	line.WriteString(l.colors[level].Sprint(level) + " " + msg)

	for _, key := range keys {
		fmt.Fprintf(&line, " %s=%v", key, fields[key])
	}

	_, _ = fmt.Fprintln(l.out, line.String())
}
