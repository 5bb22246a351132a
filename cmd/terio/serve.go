package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vcanio/Terio-sub000/pkg/config"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/patient"
	"github.com/vcanio/Terio-sub000/pkg/session"
	"github.com/vcanio/Terio-sub000/pkg/watcher"
	"github.com/vcanio/Terio-sub000/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kv, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	gate, err := web.NewGate(cfg.Password)
	if err != nil {
		return err
	}
	if !gate.Enabled() && cfg.Addr != "localhost" && cfg.Addr != "127.0.0.1" {
		logging.Warn("serving without a password on a non-local address", "addr", cfg.Addr)
	}

	publisher := web.NewPublisher()
	registry := patient.NewKVRegistry(kv)
	sess := session.New(session.Options{
		KV:              kv,
		Registry:        registry,
		Publisher:       publisher,
		Seed:            cfg.Seed,
		ContainerWidth:  cfg.ContainerWidth,
		ContainerHeight: cfg.ContainerHeight,
	})
	defer sess.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Restore(ctx); err != nil {
		logging.Warn("could not reopen the last patient", "error", err)
	}

	if cfg.Watch {
		if err := watchConfig(ctx, cmd, cfg, sess, gate); err != nil {
			logging.Warn("config watching disabled", "error", err)
		}
	}

	server := web.NewServer(web.Options{
		Session:   sess,
		Patients:  registry,
		Publisher: publisher,
		Gate:      gate,
	})

	if cfg.OpenBrowser {
		go func() {
			// Wait a moment for server to start
			time.Sleep(500 * time.Millisecond)
			openBrowser("http://" + cfg.ListenAddr())
		}()
	}

	return server.Start(ctx, cfg.ListenAddr())
}

// watchConfig reloads the config file and the dotenv file when they change
func watchConfig(ctx context.Context, cmd *cobra.Command, cfg *config.Config, sess *session.Session, gate *web.Gate) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	fw, err := watcher.NewFileWatcher(cfg.File, envFile)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 300*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	reloader := watcher.NewReloader(cfg, func() (*config.Config, error) {
		return config.Load(cmd.Flags())
	}, func(updated *config.Config, changes *watcher.ChangeAnalysis) {
		if changes.Logging {
			if err := applyLogging(updated); err != nil {
				logging.Warn("ignoring log settings", "error", err)
			}
		}
		if changes.Auth {
			if err := gate.SetPassword(updated.Password); err != nil {
				logging.Warn("password not changed", "error", err)
			}
		}
		if changes.Layout {
			sess.SetSeed(updated.Seed)
			sess.Viewport().Resize(updated.ContainerWidth, updated.ContainerHeight)
		}
	})
	go reloader.Run(ctx, debouncer.Output())
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
