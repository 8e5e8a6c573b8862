// Command loomd runs the loom daemon: it owns the document store, launches
// agent processes, and serves the CLI over a Unix socket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"loom/internal/agent"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/engine"
	"loom/internal/ipc"
	"loom/internal/logging"
	"loom/internal/prd"
	"loom/internal/session"
)

func main() {
	socketFlag := flag.String("socket", "", "path to the daemon socket")
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	pidPath := filepath.Join(cfg.LogDir(), "loomd.pid")
	if err := writePIDFile(pidPath); err != nil {
		log.Fatalf("write pid file: %v", err)
	}
	defer os.Remove(pidPath)

	store, err := prd.Open(cfg)
	if err != nil {
		logger.Error("open document store", logging.Error(err))
		os.Exit(1)
	}

	eng := engine.New(store, session.NewTracker(), agent.NewFromConfig(cfg), logger,
		engine.WithWorkdir(cfg.Paths.Workspace))

	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(*socketFlag)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("loomd shutting down")
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
