package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/catalog"
	"github.com/rewired-gh/merchscore/internal/config"
	"github.com/rewired-gh/merchscore/internal/logger"
	"github.com/rewired-gh/merchscore/internal/refresh"
	"github.com/rewired-gh/merchscore/internal/storage"
	"github.com/rewired-gh/merchscore/internal/telegram"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "merchscore",
		Usage:   "Analytics scoring and recommendations for the merchant dashboard",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "Path to configuration file",
				EnvVars: []string{"MERCHSCORE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			refreshCommand(),
			priceCommand(),
			statsCommand(),
			runsCommand(),
		},
	}
}

// service bundles the wired components shared by the commands.
type service struct {
	cfg       *config.Config
	store     *storage.Storage
	refresher *refresh.Refresher
	telegram  *telegram.Client
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", path)
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Storage, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.Storage.MaxRuns, cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// setup wires storage, the catalog client, the optional Telegram client and the refresher.
func setup(c *cli.Context, withTelegram bool) (*service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &service{cfg: cfg, store: store}

	var notifier refresh.Notifier
	if withTelegram && cfg.Telegram.Enabled {
		a.telegram, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		notifier = a.telegram
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	source := catalog.NewClient(
		cfg.Catalog.BaseURL,
		cfg.Catalog.PageSize,
		cfg.Catalog.Timeout,
		cfg.Catalog.MaxRetries,
		cfg.Catalog.RetryDelayBase,
	)
	a.refresher = refresh.New(source, store, notifier, refresh.Config{
		Workers:         cfg.Refresh.Workers,
		AggregateShards: cfg.Refresh.AggregateShards,
		TopK:            cfg.Refresh.TopK,
		NotifyCooldown:  cfg.Refresh.NotifyCooldown,
	})
	return a, nil
}

func (a *service) close() {
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Refresh analytics on a schedule and answer bot commands",
		Action: func(c *cli.Context) error {
			a, err := setup(c, true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve()
		},
	}
}

func (a *service) serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if a.telegram != nil {
		a.telegram.ListenForCommands(ctx, telegram.Commands{
			Stats:   a.store.LatestStats,
			Refresh: a.refresher.Run,
		})
	}

	if !a.cfg.Refresh.Enabled {
		logger.Info("Scheduled refresh disabled; serving commands only")
		<-ctx.Done()
		logger.Info("Service stopped")
		return nil
	}

	logger.Info("Starting refresh service (interval: %v, workers: %d, top_k: %d, cooldown: %v)",
		a.cfg.Refresh.Interval,
		a.cfg.Refresh.Workers,
		a.cfg.Refresh.TopK,
		a.cfg.Refresh.NotifyCooldown,
	)

	ticker := time.NewTicker(a.cfg.Refresh.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleResult := func(err error) {
		switch {
		case errors.Is(err, refresh.ErrRefreshInProgress):
			logger.Info("Skipping scheduled refresh: another refresh is running")
		case err != nil:
			consecutiveFailures++
			logger.Error("Refresh failed: %v", err)
			if consecutiveFailures == 1 && a.telegram != nil {
				if sendErr := a.telegram.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		default:
			if consecutiveFailures > 0 && a.telegram != nil {
				if sendErr := a.telegram.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial refresh")
	_, err := a.refresher.Run(ctx)
	handleResult(err)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil

		case <-ticker.C:
			logger.Debug("Starting scheduled refresh")
			_, err := a.refresher.Run(ctx)
			handleResult(err)
		}
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Run one analytics refresh and print its report",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "notify",
				Value: false,
				Usage: "Deliver seller alerts through Telegram",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c, c.Bool("notify"))
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.refresher.Run(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, report)
		},
	}
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "Compute a price recommendation from a category range",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "current", Usage: "Current product price", Required: true},
			&cli.StringFlag{Name: "min", Usage: "Lowest price in the category", Required: true},
			&cli.StringFlag{Name: "max", Usage: "Highest price in the category", Required: true},
			&cli.StringFlag{Name: "avg", Usage: "Average price in the category (defaults to current)"},
		},
		Action: func(c *cli.Context) error {
			ctx, err := priceContextFromFlags(c.String("current"), c.String("min"), c.String("max"), c.String("avg"))
			if err != nil {
				return err
			}
			res, err := analytics.ComputePrice(ctx)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, res)
		},
	}
}

func priceContextFromFlags(current, lo, hi, avg string) (analytics.PriceContext, error) {
	if avg == "" {
		avg = current
	}
	var ctx analytics.PriceContext
	for _, f := range []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"current", current, &ctx.CurrentPrice},
		{"min", lo, &ctx.CategoryMinPrice},
		{"max", hi, &ctx.CategoryMaxPrice},
		{"avg", avg, &ctx.CategoryAvgPrice},
	} {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return analytics.PriceContext{}, fmt.Errorf("invalid --%s %q: %w", f.name, f.value, err)
		}
		*f.dst = d
	}
	return ctx, nil
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print the latest stored prediction statistics",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.LatestStats()
			if errors.Is(err, storage.ErrNotFound) {
				return cli.Exit("no statistics stored yet; run a refresh first", 2)
			}
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, snap.Stats)
		},
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent refresh runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "Number of runs to show"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(c.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, runs)
		},
	}
}
