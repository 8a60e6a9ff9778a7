package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/courier/internal/core/ports"
)

func newExchangesCommand(root *rootOptions) *cobra.Command {
	var opts ports.ExchangeListOptions

	cmd := &cobra.Command{
		Use:   "exchanges",
		Short: "List recorded exchanges as JSON lines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 1 {
				return errors.New("--limit must be a positive integer")
			}

			a, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			store := a.client.Store()
			if store == nil {
				return errors.New("exchange recording is disabled (set recorder.driver)")
			}

			records, err := store.ListExchanges(cmd.Context(), opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Target, "target", "", "only show this endpoint")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only show success or failure")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of exchanges")
	return cmd
}
