package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/growthcharter/internal/account"
	"github.com/kalambet/growthcharter/internal/api"
	"github.com/kalambet/growthcharter/internal/config"
	"github.com/kalambet/growthcharter/internal/filesync"
	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
	"github.com/kalambet/growthcharter/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the growthcharter server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("mcp-stdio") {
			cfg.MCP.Stdio, _ = cmd.Flags().GetBool("mcp-stdio")
		}
		if f, _ := cmd.Flags().GetString("sync-file"); f != "" {
			cfg.Sync.File = f
		}
		return runServer(cfg)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running growthcharter server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show growthcharter status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp-stdio", false, "also serve MCP over stdin/stdout")
	startCmd.Flags().String("sync-file", "", "watch a JSON or YAML profile file and load it on change")
}

// kvStore is the storage surface the daemon wires into the managers.
type kvStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Clear() error
	Close() error
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "growthcharter.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func openStore(cfg config.Config) (kvStore, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		slog.Warn("using in-memory storage; data is lost on shutdown")
		return storage.NewMemory(), nil
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func runServer(cfg config.Config) error {
	fmt.Fprintf(os.Stderr, "growthcharter version %s\n", version)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(cfg.Server.BaseURL() + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("growthcharter is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("growthcharter is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	profileMgr := profile.NewManager(store, profile.WithPolicy(profile.Policy{
		TrimWhitespace: cfg.Completion.TrimWhitespace,
	}))
	settingsMgr := settings.NewManager(store)
	accountSvc := account.NewService(store, profileMgr, settingsMgr)

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewAppHandler(api.AppDeps{
			Profile:        profileMgr,
			Settings:       settingsMgr,
			Account:        accountSvc,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "growthcharter listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.MCP.Stdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Profile:  profileMgr,
			Settings: settingsMgr,
			Version:  version,
		})
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			err := server.NewStdioServer(mcpSrv).Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	if cfg.Sync.File != "" {
		w := filesync.New(cfg.Sync.File, profileMgr, filesync.WithDebounce(cfg.Sync.DebounceDuration()))
		g.Go(func() error { return w.Run(gctx) })
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("growthcharter is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop growthcharter (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to growthcharter (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    cfg.Server.BaseURL(),
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	resp, err := client.get(ctx, "/health")
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case resp.StatusCode == http.StatusOK:
		resp.Body.Close()
		running = true
		printStatus("Server", "running on %s", cfg.Server.Addr())
	default:
		resp.Body.Close()
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	}

	if running {
		if resp, err := client.get(ctx, "/profile/completion"); err == nil {
			var report profile.Report
			if decodeJSON(resp, &report) == nil {
				printStatus("Profile", "%d%% complete", report.Score)
			}
		}
	}

	printStatus("Storage", "%s", cfg.Storage.Backend)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if cfg.Sync.File != "" {
		printStatus("Sync file", "%s", cfg.Sync.File)
	}
	return nil
}
