// Package main LexSim 命令行客户端
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lexsim-api/internal/client"
)

const defaultServer = "http://localhost:8000"

type rootOptions struct {
	server  string
	timeout time.Duration
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lexsim",
		Short:         "Cliente de línea de comandos para LexSim",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("LEXSIM_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "URL base de la API (env LEXSIM_SERVER)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "tiempo máximo por petición")

	cmd.AddCommand(newSimulateCmd(opts), newHealthCmd(opts))
	return cmd
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server,
		client.WithHTTPClient(&http.Client{Timeout: o.timeout}),
		client.WithRequestID(newRequestID),
	)
}
