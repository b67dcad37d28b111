package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpcf/treegen/engine"
	"github.com/cpcf/treegen/state"
)

func newCleanCommand() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the files recorded in an output root's manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := loggerFromContext(cmd.Context())
			manager := state.NewManager(output)

			results, err := manager.Clean(force)
			out := cmd.OutOrStdout()
			for _, result := range results {
				fmt.Fprintf(out, "%s\t%s\n", styleAction(out, result.Action.String()), result.Entry.Path)
				if result.Action == state.ActionKept {
					logger.Warn("kept modified file, use --force to remove it", "path", result.Entry.Path)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", engine.DefaultOutputRoot, "Output root directory")
	cmd.Flags().BoolVar(&force, "force", false, "Also remove files modified since they were generated")

	return cmd
}
