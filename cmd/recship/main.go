package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/recship/internal/cliconfig"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/recship"
	"github.com/bft-labs/recship/plugins/configwatcher"
)

const helpDescription = `
Record what you click, type and scroll in a browser and turn it into tests.

Highlights:
  - Stable CSS selectors built from class names, not brittle XPath.
  - Recording survives reloads and navigation.
  - Sessions are shipped to your test generator over WebSocket and kept
    locally when it is not reachable.
  - Toggle with Ctrl+Shift+R (Cmd+Shift+R on macOS) or the control relay.
`

var exampleUsage = strings.TrimSpace(`
  recship https://app.example.com
  recship --channel-url ws://localhost:3004 --headless https://app.example.com
  recship last
  recship selector --file page.html --id submit
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// loadConfig layers the config file and RECSHIP_* environment under the
// flags the user set, then validates.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string, extra map[string]bool) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	for k, v := range extra {
		changed[k] = v
	}

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	cliconfig.ApplyEnvConfig(cfg, changed)

	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func libraryConfig(cfg cliconfig.Config, cfgFile string) recship.Config {
	return recship.Config{
		StartURL: cfg.StartURL,
		Channel: channel.Config{
			URL:              cfg.ChannelURL,
			MaxRetries:       cfg.MaxRetries,
			BaseDelay:        cfg.RetryBaseDelay,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		ScrollDebounce: cfg.ScrollDebounce,
		ResumeDelay:    cfg.ResumeDelay,
		TextSnippetMax: cfg.TextSnippetMax,
		StateDir:       cfg.StateDir,
		Store:          cfg.Store,
		ControlAddr:    cfg.ControlAddr,
		Headless:       cfg.Headless,
		ChromePath:     cfg.ChromePath,
		ConfigPath:     cfgFile,
	}
}

func run(ctx context.Context, cfg recship.Config, logger *log.ZerologAdapter) error {
	rec, err := recship.New(cfg,
		recship.WithLogger(logger),
		configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
	)
	if err != nil {
		return fmt.Errorf("create recship: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := rec.Start(ctx); err != nil {
		return fmt.Errorf("start recship: %w", err)
	}

	select {
	case <-sigCh:
		logger.Info("received signal, stopping...")
	case <-rec.Done():
		logger.Info("browser closed, stopping...")
	}

	if err := rec.Stop(); err != nil {
		return fmt.Errorf("stop recship: %w", err)
	}
	return nil
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "recship [url]",
		Short:   "Record browser interactions and ship them to a test generator",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := map[string]bool{}
			if len(args) == 1 {
				cfg.StartURL = args[0]
				extra["url"] = true
			}
			cfgFile, err := loadConfig(cmd, &cfg, cfgPath, extra)
			if err != nil {
				return err
			}

			logger := log.NewZerologAdapter(cfg.LogLevel)
			logger.Info("configuration", log.Any("config", cfg))

			return run(cmd.Context(), libraryConfig(cfg, cfgFile), logger)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.recship/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for the recording flag and last session (default: $HOME/.recship)")
	root.PersistentFlags().StringVar(&cfg.Store, "store", cfg.Store, "state store backend: file or sqlite")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	root.Flags().StringVar(&cfg.StartURL, "url", cfg.StartURL, "first page to open")
	root.Flags().StringVar(&cfg.ChannelURL, "channel-url", cfg.ChannelURL, "WebSocket endpoint of the test generator")
	root.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "reconnect attempts before giving up (0 disables reconnecting)")
	root.Flags().DurationVar(&cfg.RetryBaseDelay, "retry-base-delay", cfg.RetryBaseDelay, "reconnect delay, multiplied by the attempt number")
	root.Flags().DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "WebSocket dial timeout")
	root.Flags().DurationVar(&cfg.ScrollDebounce, "scroll-debounce", cfg.ScrollDebounce, "quiet period before a scroll is recorded")
	root.Flags().DurationVar(&cfg.ResumeDelay, "resume-delay", cfg.ResumeDelay, "wait before a reloaded page resumes recording")
	root.Flags().IntVar(&cfg.TextSnippetMax, "text-snippet-max", cfg.TextSnippetMax, "maximum click text kept per action")
	root.Flags().StringVar(&cfg.ControlAddr, "control-addr", cfg.ControlAddr, "control relay listen address (empty disables it)")
	root.Flags().BoolVar(&cfg.Headless, "headless", cfg.Headless, "run the browser without a window")
	root.Flags().StringVar(&cfg.ChromePath, "chrome-path", cfg.ChromePath, "browser executable (default: auto-detect)")
	if err := root.Flags().MarkHidden("text-snippet-max"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	root.AddCommand(newLastCommand(&cfg, &cfgPath))
	root.AddCommand(newSelectorCommand())

	if err := root.Execute(); err != nil {
		log.NewZerologAdapter("error").Error("recship", log.Err(err))
		os.Exit(1)
	}
}
