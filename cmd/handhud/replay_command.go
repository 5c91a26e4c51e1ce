package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pipeline"
	"github.com/ayusman/handhud/internal/store"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var useStore bool

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a JSON tick script through the pipeline",
		Long: "Replay steps a fresh pipeline session through a tick script and prints\n" +
			"the smoothed pointer, confirmed gesture and effective mode per tick.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()

			script, err := pipeline.ReadScript(f)
			if err != nil {
				return err
			}

			var overrides mode.Overrides
			if useStore {
				err := ctx.withStore(func(s *store.Store) error {
					table, err := s.Overrides().Table()
					overrides = table
					return err
				})
				if err != nil {
					return fmt.Errorf("load overrides: %w", err)
				}
			}

			outputs := pipeline.New(cfg.PipelineConfig(overrides)).Replay(script)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				for _, o := range outputs {
					if err := enc.Encode(o); err != nil {
						return err
					}
				}
				return nil
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Tick", "X", "Y", "Tracked", "Gesture", "Mode", "Visual", "Distance"},
				replayRows(outputs),
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print one JSON object per tick")
	cmd.Flags().BoolVar(&useStore, "store-overrides", false, "Use the stored override table instead of the built-in one")
	return cmd
}

func replayRows(outputs []pipeline.Output) [][]string {
	rows := make([][]string, 0, len(outputs))
	for _, o := range outputs {
		rows = append(rows, []string{
			strconv.FormatUint(o.Tick, 10),
			strconv.FormatFloat(o.Pointer.X, 'f', 4, 64),
			strconv.FormatFloat(o.Pointer.Y, 'f', 4, 64),
			yesNo(o.Tracked),
			o.Gesture,
			string(o.Mode),
			string(o.Visual),
			strconv.FormatFloat(o.Distance, 'f', 4, 64),
		})
	}
	return rows
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
