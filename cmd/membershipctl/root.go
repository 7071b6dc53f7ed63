package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mongomembership/pkg/config"
	"github.com/dmitrymomot/mongomembership/pkg/logger"
)

// runtime carries root flags and the connector to every subcommand.
type runtime struct {
	connect     connector
	envFiles    []string
	metricsFile string
}

func newRootCmd(connect connector) *cobra.Command {
	rt := &runtime{connect: connect}

	root := &cobra.Command{
		Use:   "membershipctl",
		Short: "Administer a MongoDB membership store",
		Long: `Administer accounts, roles and identifier sequences of a MongoDB membership store.

	membershipctl init
	membershipctl account create alice --password s3cret
	membershipctl role add --user alice --role admin
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&rt.envFiles, "env-file", nil, "load these .env files instead of ./.env")
	root.PersistentFlags().StringVar(&rt.metricsFile, "metrics-file", "", "write operation counters here in Prometheus text format")

	root.AddCommand(
		newInitCmd(rt),
		newHealthCmd(rt),
		newAccountCmd(rt),
		newRoleCmd(rt),
		newSeqCmd(rt),
	)
	return root
}

// run loads configuration, connects, runs fn and releases the connections whatever fn returns.
func (rt *runtime) run(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := logger.WithOperation(cmd.Context(), cmd.CommandPath())
		cmd.SetContext(ctx)

		if err := config.LoadEnv(rt.envFiles...); err != nil {
			return err
		}
		var cli cliConfig
		if err := config.Load(&cli); err != nil {
			return err
		}
		log, err := newLogger(cli, logger.WithOutput(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}

		a, err := rt.connect(ctx, cli, log)
		if err != nil {
			log.ErrorContext(ctx, "connect failed", logger.Component("cli"), logger.Error(err))
			return err
		}
		defer func() {
			if rt.metricsFile != "" && a.registry != nil {
				err = errors.Join(err, prometheus.WriteToTextfile(rt.metricsFile, a.registry))
			}
			if a.close != nil {
				err = errors.Join(err, a.close(context.WithoutCancel(ctx)))
			}
		}()

		started := time.Now()
		err = fn(cmd, a, args)
		log.DebugContext(ctx, "command finished",
			logger.Component("cli"),
			logger.Duration(time.Since(started)),
			logger.Error(err),
		)
		return err
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
