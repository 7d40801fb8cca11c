package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) shareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "share [id]",
		Short: "Print the edit and view-only links of a canvas",
		Long: `Print the edit and view-only links of a canvas served by this
machine. Without an id a new canvas id is minted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			t, err := resolveTarget(arg)
			if err != nil {
				return err
			}
			if t.link != nil {
				return fmt.Errorf("%s is already a share link", arg)
			}
			edit, view, err := shareLinks(c.cfg, t.id)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "edit: %s\n", edit)
			fmt.Fprintf(w, "view: %s\n", view)
			return nil
		},
	}
}
