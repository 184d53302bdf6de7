package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"workflow-console/internal/api"
	"workflow-console/internal/config"
	"workflow-console/internal/console"
	"workflow-console/internal/mcp"
	"workflow-console/internal/tls"
	"workflow-console/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the console",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "Listen address")
	f.String("backend-url", "http://localhost:8000", "Base URL of the rules backend")
	f.Duration("backend-timeout", 60*time.Second, "Timeout for a single backend call")
	f.Bool("mcp", true, "Expose MCP tools under /mcp")
	_ = v.BindPFlag("server.addr", f.Lookup("addr"))
	_ = v.BindPFlag("backend.url", f.Lookup("backend-url"))
	_ = v.BindPFlag("backend.timeout", f.Lookup("backend-timeout"))
	_ = v.BindPFlag("server.mcp", f.Lookup("mcp"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting workflow console", "version", version)

	client := newBackendClient(ctx, cfg)
	page := console.NewPage()
	ctrl := console.New(client, page, console.WithLogger(logger.With("component", "console")))

	srv := api.NewServer(ctrl, page, client, logger.With("component", "http"))
	srv.Version = version
	e := api.NewEcho(srv)

	if cfg.Server.MCP {
		mcpServer := mcp.NewServer(ctrl, page, version)
		mcpHandlers := http.NewServeMux()
		mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
		e.Any("/mcp", echo.WrapHandler(mcpHandlers))
		e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
		logger.Info("MCP protocol handlers mounted")
	}

	if cfg.TLS.Enable {
		generated, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			return err
		}
		if generated {
			logger.Info("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
		}
	}

	// No WriteTimeout: MCP SSE streams stay open for the life of a session.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           e,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctrl.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable)
		var err error
		if cfg.TLS.Enable {
			err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return server.Close()
		}
		return nil
	})

	// The console's entry transition: fetch the workflow list once.
	if err := ctrl.Load(gctx); err != nil {
		logger.Warn("Initial workflow load not started", "error", err)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// newBackendClient builds the transport, with client-credentials tokens
// when an OAuth2 token URL is configured and a static bearer token otherwise.
func newBackendClient(ctx context.Context, cfg *config.Config) *transport.Client {
	opts := []transport.Option{transport.WithTimeout(cfg.Backend.Timeout)}
	switch {
	case cfg.Backend.OAuth2.TokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     cfg.Backend.OAuth2.ClientID,
			ClientSecret: cfg.Backend.OAuth2.ClientSecret,
			TokenURL:     cfg.Backend.OAuth2.TokenURL,
			Scopes:       cfg.Backend.OAuth2.Scopes,
		}
		opts = append(opts, transport.WithTokenSource(cc.TokenSource(ctx)))
	case cfg.Backend.Token != "":
		opts = append(opts, transport.WithToken(cfg.Backend.Token))
	}
	return transport.NewClient(cfg.Backend.URL, opts...)
}
