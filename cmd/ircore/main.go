package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dalnet/ircore/internal/config"
	"github.com/dalnet/ircore/internal/extensions"
	"github.com/dalnet/ircore/internal/irc"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// quitGrace is how long to wait for the server to close the link after QUIT.
const quitGrace = 5 * time.Second

type options struct {
	configPath string
	server     string
	nick       string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "c", "./config.yaml", "Path to configuration file")
	flag.StringVar(&opts.server, "server", "", "Override the configured server")
	flag.StringVar(&opts.nick, "nick", "", "Override the configured nick")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	flag.BoolVar(showVersion, "version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
	log.Println("Disconnected")
}

func printVersion() {
	fmt.Printf("ircore version %s\n", version)
	fmt.Printf("Built: %s\n", buildDate)
	fmt.Printf("Commit: %s\n", gitCommit)
}

func loadConfig(opts options) (*config.Config, error) {
	path, err := filepath.Abs(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.server != "" {
		cfg.Server = opts.server
	}
	if opts.nick != "" {
		cfg.Nick = opts.nick
	}
	if cfg.CTCPVersion == "" {
		cfg.CTCPVersion = fmt.Sprintf("ircore %s (built %s, commit %s)", version, buildDate, gitCommit)
	}
	return cfg, nil
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	factories, err := extensions.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("extensions: %w", err)
	}
	client, err := irc.NewClient(cfg, factories)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal %v, sending QUIT", sig)
			client.Quit("Received shutdown signal")
			time.AfterFunc(quitGrace, cancel)
		case <-ctx.Done():
		}
	}()

	err = client.Run(ctx)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("connection lost: %w", err)
}
