package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/runtime"
)

func newCallCommand(root *rootOptions) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "call <endpoint>",
		Short: "Run an endpoint once and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var override any
			if body != "" {
				if err := json.Unmarshal([]byte(body), &override); err != nil {
					return fmt.Errorf("invalid --body: %w", err)
				}
			}

			a, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			target, ok := a.client.Target(name)
			if !ok {
				return fmt.Errorf("%w: %s", runtime.ErrUnknownEndpoint, name)
			}
			if override != nil {
				target = target.WithBody(override)
			}

			out := cmd.OutOrStdout()
			resp, err := a.client.Do(cmd.Context(), target)
			if err != nil {
				if svcErr, ok := domain.AsServiceError(err); ok && svcErr.Response != nil {
					out.Write(svcErr.Response.Data)
				}
				return err
			}

			a.logger.Info("call completed", slog.String("endpoint", name), slog.Int("status", resp.StatusCode))
			_, err = out.Write(resp.Data)
			return err
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "JSON body to send instead of the configured one")
	return cmd
}
