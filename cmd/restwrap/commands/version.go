package commands

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"

	"github.com/fivetwenty-io/restwrap/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// buildInfo describes the binary and the client it would build from the
// current configuration.
type buildInfo struct {
	Version   string `json:"version"    yaml:"version"`
	Commit    string `json:"commit"     yaml:"commit"`
	Built     string `json:"built"      yaml:"built"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform"   yaml:"platform"`
	UserAgent string `json:"user_agent" yaml:"user_agent"`
	Resources *int   `json:"resources"  yaml:"resources"`
}

func newBuildInfo(version, commit, date string) buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		Built:     date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent: constants.DefaultUserAgent,
	}

	if agent := viper.GetString("user_agent"); agent != "" {
		info.UserAgent = agent
	}

	// The mapping is optional here; version must work without one.
	registry, err := loadRegistry()
	if err == nil {
		count := registry.Len()
		info.Resources = &count
	}

	return info
}

// NewVersionCommand creates the version command. Besides build metadata it
// reports the user agent requests are sent with and how many resources the
// configured mapping declares.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display version information about the restwrap CLI and the client it is configured to build",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := newBuildInfo(version, commit, date)
			out := cmd.OutOrStdout()

			switch viper.GetString("output") {
			case constants.FormatJSON:
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")

				return encoder.Encode(info)
			case constants.FormatYAML:
				return yaml.NewEncoder(out).Encode(info)
			default:
				resources := "N/A"
				if info.Resources != nil {
					resources = strconv.Itoa(*info.Resources)
				}

				table := tablewriter.NewWriter(out)
				table.Header("Property", "Value")
				_ = table.Append("Version", info.Version)
				_ = table.Append("Commit", info.Commit)
				_ = table.Append("Built", info.Built)
				_ = table.Append("Go", info.GoVersion)
				_ = table.Append("Platform", info.Platform)
				_ = table.Append("User Agent", info.UserAgent)
				_ = table.Append("Resources", resources)

				err := table.Render()
				if err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
