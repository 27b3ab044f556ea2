package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/philipparndt/partquote/internal/api"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/surrogate"
	"github.com/philipparndt/partquote/version"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the estimator over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := serveAddress
	if address == "" {
		address = cfg.Server.Address
	}

	var store api.HistoryStore
	if s := openHistory(); s != nil {
		defer s.Close()
		store = s
	}

	server := api.New(api.Dependencies{
		Advisor:         cfg.NewAdvisor(advisor.WithLogger(componentLogger("advisor"))),
		Backend:         surrogate.NewBackend(),
		History:         store,
		DefaultMaterial: cfg.DefaultMaterial,
		RunTTL:          cfg.Server.RunTTL,
		BodyLimit:       cfg.Server.BodyLimit,
		Version:         version.GetVersion(),
		Logger:          componentLogger("api"),
	})
	return server.ListenAndServe(ctx, address)
}
