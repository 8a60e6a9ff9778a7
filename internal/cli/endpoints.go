package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEndpointsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List configured endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tMETHOD\tURL")
			for _, name := range a.client.Endpoints() {
				target, _ := a.client.Target(name)
				url := strings.TrimSuffix(target.BaseURL(), "/") + "/" + strings.TrimPrefix(target.Path(), "/")
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, target.Method(), url)
			}
			return w.Flush()
		},
	}
}
