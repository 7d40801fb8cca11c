package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"CanvasBoard/internal/docstore"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the document service",
		Long: `Run the HTTP and websocket document service that editors on the
local network load, save and subscribe to canvases through.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx := cmd.Context()
			store, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			wait, err := c.startService(ctx, store)
			if err != nil {
				return err
			}
			return wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// startService listens on the configured address and serves store
// until ctx is done. wait blocks until the service has stopped.
func (c *CLI) startService(ctx context.Context, store docstore.Store) (wait func() error, err error) {
	logger := c.component("server")
	host, err := publicHost(c.cfg)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", c.cfg.Server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", c.cfg.Server.Addr, err)
	}

	srv := server.New(server.Options{
		Store:        store,
		Logger:       logger,
		PublicHost:   host,
		SceneOptions: c.sceneOptions(),
	})

	unadvertise := func() {}
	if c.cfg.Discovery.Enabled {
		adv, err := boardnet.Advertise(listenPort(ln), "CanvasBoard", "version="+Version)
		if err != nil {
			logger.Warn("mDNS advertisement failed", "err", err)
		} else {
			logger.Info("advertising on the local network", "service", boardnet.ServiceType)
			unadvertise = func() { adv.Shutdown() }
		}
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	return func() error {
		err := <-done
		unadvertise()
		return err
	}, nil
}
