package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nexus/internal/tui"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start an interactive terminal session",
		Long: `Start an interactive terminal session.

Type an idea and press enter. Once the concept is shown:
  v  generate concept art
  n  start a new idea (also cancels a running expansion)
  q  quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()
			return tui.Run(ctx, rt.NewMachine("tui-"+uuid.NewString()))
		},
	}
}
