// Package cli implements the canvasboard command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"CanvasBoard/internal/config"
	"CanvasBoard/internal/docstore"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/state"
)

const appName = "canvasboard"

// Version is set at build time with -ldflags "-X CanvasBoard/internal/cli.Version=...".
var Version = "dev"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	cfg        *config.Config
}

func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               appName,
		Short:             "CanvasBoard is a shared drawing canvas for the local network",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.openCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.shareCommand())
	root.AddCommand(c.discoverCommand())
	root.AddCommand(c.versionCommand())
	return root
}

func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.verbose {
		level = log.DebugLevel
	}
	c.Logger.SetLevel(level)
	c.Logger.Debug("configuration loaded", "store", cfg.Store.Backend, "addr", cfg.Server.Addr)
	return nil
}

func (c *CLI) component(name string) *log.Logger {
	return c.Logger.WithPrefix(name)
}

// openStore opens the configured document store.
func (c *CLI) openStore(ctx context.Context) (docstore.Store, error) {
	s := c.cfg.Store
	return docstore.Open(ctx, docstore.Options{
		Backend:       s.Backend,
		SQLitePath:    s.SQLitePath,
		RedisAddr:     s.RedisAddr,
		MongoURI:      s.MongoURI,
		MongoDatabase: s.MongoDatabase,
		RemoteURL:     s.RemoteURL,
		Logger:        c.component("store"),
	})
}

func (c *CLI) sceneOptions() []state.SceneOption {
	return []state.SceneOption{
		state.WithSize(c.cfg.Canvas.Width, c.cfg.Canvas.Height),
		state.WithBackground(c.cfg.Canvas.Background),
	}
}

// publicHost is the host:port other machines reach this document
// service on.
func publicHost(cfg *config.Config) (string, error) {
	if cfg.Server.PublicHost != "" {
		return cfg.Server.PublicHost, nil
	}
	host, port, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		return "", fmt.Errorf("server.addr: %w", err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = boardnet.GetOutgoingIP()
	}
	return net.JoinHostPort(host, port), nil
}

// shareLinks returns the edit and view-only links for id.
func shareLinks(cfg *config.Config, id string) (edit, view boardnet.Link, err error) {
	host, err := publicHost(cfg)
	if err != nil {
		return edit, view, err
	}
	edit = boardnet.Link{Host: host, ID: id}
	view = boardnet.Link{Host: host, ID: id, ViewOnly: true}
	return edit, view, nil
}

func listenPort(ln net.Listener) int {
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}
