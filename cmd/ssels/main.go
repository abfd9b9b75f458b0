package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/config"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/server"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var log = commonlog.GetLogger("ssels")

var (
	transport  string
	addr       string
	configPath string
	logfile    string
	verbosity  int
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "ssels",
		Short:         "Structural selection language server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the language server",
		Long:  `Serves the Language Server Protocol on stdio (the default), a TCP address or a WebSocket address.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version of the program",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s language server version %s\n", server.Name, Version)
		},
	}
)

func init() {
	serveCmd.Flags().StringVar(&transport, "transport", "stdio", "stdio, tcp or websocket")
	serveCmd.Flags().StringVar(&addr, "addr", "localhost:7998", "listen address for tcp and websocket")
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file")
	serveCmd.Flags().StringVar(&logfile, "logfile", "", "path to log file (default stderr)")
	serveCmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "log every protocol message")

	rootCmd.AddCommand(serveCmd, dumpCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Give it some cores
	runtime.GOMAXPROCS(4)

	// Logging, also used by the protocol handler
	var path *string
	if logfile != "" {
		path = &logfile
	}
	commonlog.Configure(1+verbosity, path)

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}

	s, err := server.New(cfg, Version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WatchProfile && cfg.ProfilePath != "" {
		if err := profile.Watch(ctx, cfg.ProfilePath, s.Profiles(), s.ProfileReloaded); err != nil {
			return fmt.Errorf("failed to watch profile: %w", err)
		}
	}
	if cfg.Metrics.Addr != "" {
		bound, err := metrics.Serve(cfg.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("failed to serve metrics: %w", err)
		}
		log.Infof("metrics on http://%s/metrics", bound)
	}

	log.Infof("starting %s %s on %s", server.Name, Version, transport)
	switch transport {
	case "stdio":
		return s.RunStdio(ctx, debug)
	case "tcp":
		return s.RunTCP(ctx, addr, debug)
	case "websocket":
		return s.RunWebSocket(ctx, addr, debug)
	default:
		return fmt.Errorf("unknown transport %q", transport)
	}
}
