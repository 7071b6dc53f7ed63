package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("one or more backends are unhealthy")

func newInitCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the indexes the store relies on",
		Args:  cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			printf(cmd, "indexes are up to date\n")
			return nil
		}),
	}
}

func newHealthCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to every configured backend",
		Args:  cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, a *app, _ []string) error {
			names := make([]string, 0, len(a.checks))
			for name := range a.checks {
				names = append(names, name)
			}
			sort.Strings(names)

			var failed bool
			for _, name := range names {
				if err := a.checks[name](cmd.Context()); err != nil {
					failed = true
					printf(cmd, "%s: FAIL (%v)\n", name, err)
					continue
				}
				printf(cmd, "%s: ok\n", name)
			}
			if failed {
				return errUnhealthy
			}
			return nil
		}),
	}
}

func newSeqCmd(rt *runtime) *cobra.Command {
	seq := &cobra.Command{
		Use:   "seq",
		Short: "Inspect identifier sequences",
	}

	var count int
	next := &cobra.Command{
		Use:   "next <entity>",
		Short: "Allocate identifiers for an entity",
		Long: `Allocate identifiers for an entity. Allocated identifiers are spent even when unused;
use this to move a sequence past identifiers imported from elsewhere.`,
		Args: cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			for range count {
				id, err := a.ids.Next(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printf(cmd, "%d\n", id)
			}
			return nil
		}),
	}
	next.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers to allocate")

	seq.AddCommand(next)
	return seq
}
