package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
)

// NewParamsCommand creates the params command.
func NewParamsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "params [name...]",
		Short: "List the page list options",
		Long: `List the options a request may set, with their kinds and defaults.
Pass names to show only those options.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := params.NewRegistry()

			var descriptors []params.Descriptor
			if len(args) == 0 {
				for _, def := range registry.Definitions() {
					descriptors = append(descriptors, def.Describe())
				}
			} else {
				for _, name := range args {
					def, ok := registry.Lookup(strings.ToLower(name))
					if !ok {
						return NewExitError(ExitCommandError, fmt.Sprintf("unknown parameter %q", name))
					}
					descriptors = append(descriptors, def.Describe())
				}
			}

			if rootOpts.Format != "text" {
				return encode(cmd.OutOrStdout(), rootOpts.Format, descriptors)
			}
			return renderParams(cmd.OutOrStdout(), descriptors)
		},
	}
}

func renderParams(w io.Writer, descriptors []params.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDEFAULT\tDESCRIPTION")
	for _, d := range descriptors {
		desc := d.Description
		if len(d.Values) > 0 {
			desc += " [" + strings.Join(d.Values, "|") + "]"
		}
		if d.Permission != "" {
			desc += " (requires " + d.Permission + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Kind, d.Default, desc)
	}
	return tw.Flush()
}
