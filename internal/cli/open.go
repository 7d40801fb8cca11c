package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"CanvasBoard/internal/docstore"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/session"
	"CanvasBoard/internal/state"
	"CanvasBoard/internal/ui"
)

// target is the document a command works on.
type target struct {
	id       string
	viewOnly bool
	// link is set when the document lives on another machine's service.
	link *boardnet.Link
}

// resolveTarget reads a share link or a bare document id. An empty arg
// mints a new document id.
func resolveTarget(arg string) (target, error) {
	if arg == "" {
		return target{id: state.NewObjectID()}, nil
	}
	if l, err := boardnet.ParseLink(arg); err == nil {
		return target{id: l.ID, viewOnly: l.ViewOnly, link: &l}, nil
	}
	for _, r := range arg {
		if r == '/' || r == ':' || r == '?' {
			return target{}, fmt.Errorf("%q is neither a share link nor a document id", arg)
		}
	}
	return target{id: arg}, nil
}

// storeFor opens the store holding t: the linked service, or the
// configured backend.
func (c *CLI) storeFor(ctx context.Context, t target) (docstore.Store, error) {
	if t.link != nil {
		return docstore.NewRemote(t.link.ServiceURL(), c.component("store"))
	}
	return c.openStore(ctx)
}

func (c *CLI) openCommand() *cobra.Command {
	var (
		viewOnly bool
		noServe  bool
	)

	cmd := &cobra.Command{
		Use:   "open [link|id]",
		Short: "Open a canvas in the desktop editor",
		Long: `Open a canvas in the desktop editor.

With a share link the canvas is loaded from the service that issued it.
Otherwise the canvas is kept in the configured store and, unless
--no-serve is given, served to the local network so the links shown in
the status bar work for others.`,
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
			t.viewOnly = t.viewOnly || viewOnly
			return c.runEditor(cmd.Context(), t, !noServe && t.link == nil)
		},
	}
	cmd.Flags().BoolVar(&viewOnly, "view-only", false, "open the canvas read-only")
	cmd.Flags().BoolVar(&noServe, "no-serve", false, "do not serve a local canvas to the network")
	return cmd
}

func (c *CLI) runEditor(ctx context.Context, t target, serve bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := c.storeFor(ctx, t)
	if err != nil {
		return err
	}
	defer store.Close()

	var links []string
	if serve {
		wait, err := c.startService(ctx, store)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			if err := wait(); err != nil {
				c.Logger.Error("document service stopped", "err", err)
			}
		}()
		edit, view, err := shareLinks(c.cfg, t.id)
		if err != nil {
			return err
		}
		links = []string{edit.String(), view.String()}
		c.Logger.Info("sharing canvas", "edit", edit, "view", view)
	}

	editor := ui.NewEditor("CanvasBoard - " + t.id)
	sess, err := session.Open(ctx, session.Options{
		ID:            t.id,
		Store:         store,
		ReadOnly:      t.viewOnly,
		Quiescence:    c.cfg.Sync.Debounce,
		StaleGuard:    c.cfg.Sync.StaleGuard,
		Logger:        c.component("session"),
		SceneOptions:  c.sceneOptions(),
		Hooks:         editor.Hooks(),
		OnStateChange: editor.OnStateChange,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	editor.Attach(sess, links...)
	editor.ShowAndRun()

	// Closing the window must not lose the last edits.
	sess.Flush()
	return nil
}
