package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Consulta /health y /ready del servidor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := root.client()

			health, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			ready, readyErr := c.Ready(cmd.Context())

			out, err := json.MarshalIndent(map[string]any{"health": health, "ready": ready}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return readyErr
		},
	}
}
