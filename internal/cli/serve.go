package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coursekit/policywizard/internal/audit"
	"github.com/coursekit/policywizard/internal/config"
	"github.com/coursekit/policywizard/internal/store"
	"github.com/coursekit/policywizard/internal/web"
)

var (
	servePort     int
	serveConfig   string
	serveDB       string
	serveAuditLog string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to config YAML")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Path to sqlite database (overrides config)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LTI policy service",
	Long: "Runs the HTTP service: the LTI launch endpoint plus the session-scoped\n" +
		"template and policy workflows. Supports hot-reload of the consumer registry.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.ListenPort = servePort
	}
	if serveDB != "" {
		cfg.DatabasePath = serveDB
	}
	if serveAuditLog != "" {
		cfg.AuditLogPath = serveAuditLog
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open policy store: %w", err)
	}
	defer st.Close()

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer auditLog.Close()
	}

	srv := web.NewServer(cfg, serveConfig, st, auditLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start hot-reload watcher for the consumer registry
	reloader, err := web.NewReloader(srv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	} else {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "shutting down")
		cancel()
	}()

	return srv.Start(ctx)
}
