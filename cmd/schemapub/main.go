package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemapub/internal/app"
	"github.com/koustreak/schemapub/internal/config"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/publisher"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "schemapub",
		Short:         "Publish a database schema model to the architecture repository",
		Long:          `schemapub reads tables, columns, primary keys and foreign keys of one database schema and publishes them as a document to the architecture repository.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "schemapub.yaml", "path to config file (empty to configure from SCHEMAPUB_* variables)")

	open := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		log := logger.New(cfg.LoggerConfig())
		return app.New(cmd.Context(), cfg, log)
	}

	root.AddCommand(newServeCmd(open), newPublishCmd(open), newPrintCmd(open))
	return root
}

type openFunc func(cmd *cobra.Command) (*app.App, error)

func newServeCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Publish once in the background and serve the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a.Publisher.Start(ctx)
			defer a.Publisher.Wait()
			defer cancel()

			if a.Publisher.Enabled() {
				if _, err := a.Publisher.PublishAsync(); err != nil {
					a.Log.ErrorWith("startup publish not queued", err, nil)
				}
			}

			return a.Server().Start(ctx)
		},
	}
}

func newPublishCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Read the schema and publish it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.Publisher.Publish(cmd.Context())
			if errors.Is(err, publisher.ErrPublishDisabled) {
				return fmt.Errorf("%w: set archrepo.url or enable an archive/kafka sink", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d tables, version %s (run %s)\n", run.Tables, run.Version, run.ID)
			return nil
		},
	}
}

func newPrintCmd(open openFunc) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Read the schema and print the document that would be published",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.Publisher.Build(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	return cmd
}
