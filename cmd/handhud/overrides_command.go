package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/store"
)

func newOverridesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage the gesture to mode override table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List gesture overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store) error {
				overrides, err := s.Overrides().List()
				if err != nil {
					return fmt.Errorf("list overrides: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(overrides) == 0 {
					fmt.Fprintln(out, "No overrides; every gesture passes the application mode through")
					return nil
				}
				rows := make([][]string, 0, len(overrides))
				for _, o := range overrides {
					rows = append(rows, []string{o.Label, string(o.Mode), string(o.Mode.Visual())})
				}
				fmt.Fprintln(out, renderTable([]string{"Gesture", "Mode", "Visual"}, rows, nil))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set LABEL MODE",
		Short: "Force MODE while gesture LABEL is confirmed",
		Long: `Force MODE while gesture LABEL is confirmed.

When a handhud daemon is running the change goes through its HTTP API and
takes effect immediately. Otherwise it is written to the database and picked
up on the next start.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := args[0]
			m, err := mode.Parse(args[1])
			if err != nil {
				return err
			}
			err = ctx.editOverride(cmd.Context(),
				func(reqCtx context.Context, c *daemonClient) error { return c.PutOverride(reqCtx, label, m) },
				func(s *store.Store) error { return s.Overrides().Put(&store.Override{Label: label, Mode: m}) },
			)
			if err != nil {
				return fmt.Errorf("set override: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", label, m)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete LABEL",
		Short: "Remove the override for gesture LABEL",
		Long: `Remove the override for gesture LABEL.

Like set, this goes through a running daemon when there is one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := args[0]
			err := ctx.editOverride(cmd.Context(),
				func(reqCtx context.Context, c *daemonClient) error { return c.DeleteOverride(reqCtx, label) },
				func(s *store.Store) error { return s.Overrides().Delete(label) },
			)
			if errors.Is(err, errOverrideNotFound) || errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no override for gesture %q", label)
			}
			if err != nil {
				return fmt.Errorf("delete override: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed override for %s\n", label)
			return nil
		},
	})

	return cmd
}

// editOverride applies an override edit through the running daemon, or
// straight to the database when none is running.
func (c *commandContext) editOverride(ctx context.Context, viaDaemon func(context.Context, *daemonClient) error, direct func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	running, err := daemonRunning(cfg)
	if err != nil {
		return err
	}
	if !running {
		return c.withStore(direct)
	}
	client, err := newDaemonClient(cfg.Server.Addr)
	if err != nil {
		return err
	}
	return viaDaemon(ctx, client)
}
