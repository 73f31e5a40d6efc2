package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-mcp-auth/internal/config"
	"github.com/jrsteele09/go-mcp-auth/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type flags struct {
	port         string
	baseURL      string
	staticSecret string
	env          string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "mcp-auth",
		Short: "OAuth 2.0 authorization gateway in front of an MCP server",
		Long: `mcp-auth serves the OAuth 2.0 authorization code flow with PKCE and
guards the MCP stream and rpc endpoints with the bearer tokens it issues.

Flags override the corresponding environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, f.configOptions()...)
		},
	}

	cmd.Flags().StringVar(&f.port, "port", "", "Port to listen on (env PORT)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Public base URL used in discovery documents (env BASE_URL)")
	cmd.Flags().StringVar(&f.staticSecret, "static-secret", "", "Shared bearer secret; when empty the protocol endpoints are open (env MCP_AUTH_TOKEN)")
	cmd.Flags().StringVar(&f.env, "env", "", "Environment name, DEV enables console logging (env ENV)")
	return cmd
}

func (f *flags) configOptions() []config.Option {
	var options []config.Option
	if f.port != "" {
		options = append(options, config.WithPort(f.port))
	}
	if f.baseURL != "" {
		options = append(options, config.WithBaseURL(f.baseURL))
	}
	if f.staticSecret != "" {
		options = append(options, config.WithStaticSecret(f.staticSecret))
	}
	if f.env != "" {
		options = append(options, config.WithEnv(f.env))
	}
	return options
}

// run serves until ctx is cancelled, then shuts the HTTP server and the
// expiry sweeper down together.
func run(ctx context.Context, options ...config.Option) error {
	c := config.New(options...)
	setupLogging(c)
	displayAppname(c.GetAppName())

	srv, err := server.New(c)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Request contexts derive from ctx so open event streams end on shutdown.
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		return srv.Sweeper().Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return shutdown(httpServer)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
