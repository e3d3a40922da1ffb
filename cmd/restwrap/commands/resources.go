package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/restwrap/internal/constants"
	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// resourceSummary is the machine-readable form of a descriptor.
type resourceSummary struct {
	Name         string   `json:"name"         yaml:"name"`
	URL          string   `json:"url"          yaml:"url"`
	Placeholders []string `json:"placeholders" yaml:"placeholders"`
	Docs         string   `json:"docs"         yaml:"docs"`
}

// NewResourcesCommand creates the resources command.
func NewResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resources",
		Aliases: []string{"ls"},
		Short:   "List resources",
		Long:    "List every resource of the mapping with its URL template",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}

			summaries := make([]resourceSummary, 0, registry.Len())

			for _, name := range registry.Names() {
				descriptor, err := registry.Lookup(name)
				if err != nil {
					return err
				}

				docs, _ := descriptor.Meta("docs")

				summaries = append(summaries, resourceSummary{
					Name:         name,
					URL:          descriptor.URLTemplate,
					Placeholders: restwrap.Placeholders(descriptor.URLTemplate),
					Docs:         docs,
				})
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

				return encoder.Encode(summaries)
			case constants.FormatYAML:
				encoder := yaml.NewEncoder(cmd.OutOrStdout())

				return encoder.Encode(summaries)
			default:
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.Header("Name", "URL", "Docs")

				for _, summary := range summaries {
					docs := summary.Docs
					if docs == "" {
						docs = constants.NotAvailable
					}

					_ = table.Append(summary.Name, summary.URL, docs)
				}

				err := table.Render()
				if err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

// NewDocsCommand creates the docs command.
func NewDocsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docs RESOURCE",
		Short: "Show resource documentation",
		Long:  "Print the documentation block of a resource: one 'Key: value' line per metadata field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}

			descriptor, err := registry.Lookup(args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), descriptor.Docs())

			return err
		},
	}
}

// NewURLCommand creates the url command.
func NewURLCommand() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "url RESOURCE",
		Short: "Resolve a resource URL",
		Long:  "Fill the URL template of a resource with --param values and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}

			descriptor, err := registry.Lookup(args[0])
			if err != nil {
				return err
			}

			values, err := parseKeyValues(params)
			if err != nil {
				return err
			}

			resolved, err := restwrap.ResolveTemplate(descriptor.URLTemplate, values)
			if err != nil {
				return err
			}

			for _, unused := range restwrap.UnusedParams(descriptor.URLTemplate, values) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: parameter %q is not used by %s\n", unused, args[0])
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), resolved)

			return err
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "template parameter as key=value (repeatable)")

	return cmd
}
