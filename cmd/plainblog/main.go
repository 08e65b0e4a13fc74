package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eringen/plainblog"
	"github.com/eringen/plainblog/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "tree":
		err = runTree(args)
	case "new":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: plainblog new <dir>")
			os.Exit(1)
		}
		err = runNew(args[0])
	case "version":
		fmt.Printf("plainblog %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`plainblog - serve a directory of HTML and Markdown posts

Usage:
  plainblog [command] [arguments]

Commands:
  serve [-config file]   Serve the blog (default command)
  tree [-config file]    Print categories and their posts
  new <dir>              Create a new blog directory
  version                Print the plainblog version
  help                   Show this help message

Configuration is read from the YAML file given with -config and from
PLAINBLOG_* environment variables (PLAINBLOG_DIR, PLAINBLOG_ADDR, ...).`)
}

func configFlag(name string, args []string) (plainblog.SiteConfig, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "path to a YAML config file")
	dir := fs.String("dir", "", "blog directory (overrides the config)")
	if err := fs.Parse(args); err != nil {
		return plainblog.SiteConfig{}, err
	}
	cfg, err := plainblog.LoadConfig(*path)
	if err != nil {
		return cfg, err
	}
	if *dir != "" {
		if cfg.StatsDatabasePath == filepath.Join(cfg.Dir, "data", "stats.db") {
			cfg.StatsDatabasePath = ""
		}
		cfg.Dir = *dir
	}
	return cfg, nil
}

func runServe(args []string) error {
	cfg, err := configFlag("serve", args)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	app, err := plainblog.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.RefreshOnSignal(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
