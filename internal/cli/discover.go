package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	boardnet "CanvasBoard/internal/net"
)

func (c *CLI) discoverCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List document services on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeout == 0 {
				timeout = c.cfg.Discovery.Timeout
			}
			w := cmd.OutOrStdout()
			n := 0
			err := boardnet.Browse(cmd.Context(), timeout, func(s boardnet.Service) {
				n++
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Instance, s.BaseURL(), strings.Join(s.Info, " "))
			})
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			if n == 0 {
				c.Logger.Info("no document services found", "timeout", timeout)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to listen for answers (default discovery.timeout)")
	return cmd
}
