package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type requestFlags struct {
	params  []string
	query   []string
	headers []string
	data    string
	all     bool
}

// NewRequestCommands creates one command per HTTP method.
func NewRequestCommands() []*cobra.Command {
	methods := []restwrap.Method{
		restwrap.MethodGet,
		restwrap.MethodPost,
		restwrap.MethodPut,
		restwrap.MethodPatch,
		restwrap.MethodDelete,
	}

	cmds := make([]*cobra.Command, 0, len(methods))
	for _, method := range methods {
		cmds = append(cmds, NewRequestCommand(method))
	}

	return cmds
}

// NewRequestCommand creates the command sending method requests to a resource.
func NewRequestCommand(method restwrap.Method) *cobra.Command {
	flags := &requestFlags{}
	name := strings.ToLower(string(method))

	cmd := &cobra.Command{
		Use:   name + " RESOURCE",
		Short: "Send a " + string(method) + " request to a resource",
		Long: "Send a " + string(method) + " request to the URL of RESOURCE and print the decoded body.\n" +
			"Template placeholders are filled with --param; a non-2xx answer exits with an error.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, method, args[0], flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.params, "param", "p", nil, "template parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")

	if method != restwrap.MethodGet {
		cmd.Flags().StringVarP(&flags.data, "data", "d", "", "JSON request body, or @file to read it from a file")
	}

	if method == restwrap.MethodGet {
		cmd.Flags().BoolVar(&flags.all, "all", false, "follow pagination and print every item of every page")
	}

	return cmd
}

func runRequest(cmd *cobra.Command, method restwrap.Method, name string, flags *requestFlags) error {
	params, err := parseKeyValues(flags.params)
	if err != nil {
		return err
	}

	client, err := createClient()
	if err != nil {
		return err
	}

	defer client.Close()

	resource, err := client.Resource(name, params)
	if err != nil {
		return err
	}

	opts, err := buildRequestOptions(flags)
	if err != nil {
		return err
	}

	if flags.all {
		return runPaginated(cmd, resource, opts)
	}

	resp, err := resource.Do(cmd.Context(), method, opts...)
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %s -> %d\n", method, resp.URL(), resp.StatusCode)
	}

	body, _ := resp.Value()

	err = renderValue(cmd.OutOrStdout(), body)
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %s %s returned status %d", ErrRequestFailed, method, resp.URL(), resp.StatusCode)
	}

	return nil
}

func runPaginated(cmd *cobra.Command, resource *restwrap.Resource, opts []restwrap.RequestOption) error {
	iterator, err := resource.Iterate(cmd.Context(), opts...)
	if err != nil {
		return err
	}

	first := iterator.Page()
	if !first.IsSuccess() {
		body, _ := first.Value()
		_ = renderValue(cmd.OutOrStdout(), body)

		return fmt.Errorf("%w: GET %s returned status %d", ErrRequestFailed, first.URL(), first.StatusCode)
	}

	items := make([]interface{}, 0)

	err = iterator.ForEach(func(item restwrap.Data) error {
		value, err := item.Value()
		items = append(items, value)

		return err
	})
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d items from %d pages\n", len(items), iterator.Pages())
	}

	return renderValue(cmd.OutOrStdout(), items)
}

func buildRequestOptions(flags *requestFlags) ([]restwrap.RequestOption, error) {
	var opts []restwrap.RequestOption

	query, err := parseKeyValues(flags.query)
	if err != nil {
		return nil, err
	}

	for key, value := range query {
		opts = append(opts, restwrap.WithQueryParam(key, value))
	}

	headers, err := parseHeaders(flags.headers)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		opts = append(opts, restwrap.WithHeader(key, value))
	}

	if flags.data != "" {
		body, err := readBody(flags.data)
		if err != nil {
			return nil, err
		}

		opts = append(opts, restwrap.WithBody(body))
	}

	return opts, nil
}

func readBody(data string) (json.RawMessage, error) {
	raw := []byte(data)

	if path, ok := strings.CutPrefix(data, "@"); ok {
		content, err := os.ReadFile(path) // #nosec G304 -- the user names the file to send
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}

		raw = content
	}

	if !json.Valid(raw) {
		return nil, ErrInvalidBody
	}

	return json.RawMessage(raw), nil
}
