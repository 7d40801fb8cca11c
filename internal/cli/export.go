package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"CanvasBoard/internal/docstore"
	"CanvasBoard/internal/export"
	"CanvasBoard/internal/state"
)

func (c *CLI) exportCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <link|id>",
		Short: "Render a canvas to PNG, SVG or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(args[0])
			if err != nil {
				return err
			}

			var f export.Format
			if format != "" {
				f, err = export.ParseFormat(format)
			} else {
				f, err = export.FormatForPath(output)
			}
			if err != nil {
				return err
			}
			r, err := f.Renderer()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := c.storeFor(ctx, t)
			if err != nil {
				return err
			}
			defer store.Close()

			scene := state.NewScene(c.sceneOptions()...)
			rec, err := store.Get(ctx, t.id)
			switch {
			case errors.Is(err, docstore.ErrNotFound):
				c.Logger.Warn("canvas has never been saved; exporting a blank canvas", "id", t.id)
			case err != nil:
				return err
			default:
				snap, err := state.DecodeSnapshot(rec.CanvasData)
				if err != nil {
					return err
				}
				if err := state.FromSnapshot(snap, scene); err != nil {
					return err
				}
			}

			out, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := scene.Rasterize(out, r); err != nil {
				out.Close()
				return fmt.Errorf("render %s: %w", f, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
			c.Logger.Info("exported", "id", t.id, "format", f, "path", output, "objects", scene.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "canvas.png", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "png, svg or pdf (default from the output extension)")
	return cmd
}
