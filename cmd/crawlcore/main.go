// Command crawlcore is the operational CLI for a crawlcore-based
// collector: it manages the on-disk store and run ledger directly, and
// drives the Init/Run/Stop/Clean lifecycle of a Crawler wired by a
// concrete collector binary's capabilitiesFactory.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/urfave/cli/v2"

	_ "modernc.org/sqlite"

	"github.com/crawlcore/crawlcore"
	"github.com/crawlcore/crawlcore/catalog"
	"github.com/crawlcore/crawlcore/store"
	"github.com/crawlcore/crawlcore/store/boltstore"
)

// capabilitiesFactory builds the Capabilities value the start command
// runs the crawl with. crawlcore's core is fetch-protocol agnostic by
// design (its fetcher/importer/committer pipelines are explicitly out
// of scope); a concrete collector binary replaces this variable before
// calling Run, or forks main.go wholesale with its own wiring.
var capabilitiesFactory = func(cfg *Config) (crawlcore.Capabilities, error) {
	return crawlcore.Capabilities{}, fmt.Errorf("no capabilitiesFactory wired: build a collector binary that sets cmd/crawlcore's capabilitiesFactory before calling Run")
}

var configFlag = &cli.StringFlag{Name: "c", Usage: "path to the YAML config file", Required: true}
var variablesFlag = &cli.StringFlag{Name: "variables", Usage: "path to a variable-substitution file applied to the config before parsing"}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	app := &cli.App{
		Name:  "crawlcore",
		Usage: "operate a crawlcore-based collector's store, run ledger, and lifecycle",
		Commands: []*cli.Command{
			startCommand(log),
			stopCommand(log),
			cleanCommand(log),
			configCheckCommand(log),
			storeExportCommand(log),
			storeImportCommand(log),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("crawlcore: command failed", "err", err)
		os.Exit(1)
	}
}

func loadConfigFromCLI(c *cli.Context) (*Config, error) {
	return loadConfig(c.String("c"), c.String("variables"))
}

func openStore(cfg *Config, log *slog.Logger) (*boltstore.Store, error) {
	return boltstore.Open(cfg.StorePath, log)
}

func openCatalog(ctx context.Context, cfg *Config) (*bun.DB, error) {
	sqlDB, err := sql.Open("sqlite", cfg.CatalogDSN+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := catalog.InitDB(ctx, db); err != nil {
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return db, nil
}

func startCommand(log *slog.Logger) *cli.Command {
	var resume bool
	return &cli.Command{
		Name:  "start",
		Usage: "open the store and run a crawl to completion",
		Flags: []cli.Flag{
			configFlag, variablesFlag,
			&cli.BoolFlag{Name: "resume", Usage: "reconcile an interrupted prior run", Destination: &resume},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigFromCLI(c)
			if err != nil {
				return err
			}
			caps, err := capabilitiesFactory(cfg)
			if err != nil {
				return err
			}
			s, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer s.Close()

			db, err := openCatalog(c.Context, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ledger := catalog.NewRunLedger(db)

			crawler, err := crawlcore.NewCrawler(s, caps, nil, cfg.crawlerConfig(), log)
			if err != nil {
				return err
			}

			resuming, err := crawler.Init(c.Context, resume)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			queued, err := s.QueuedCount(c.Context)
			if err != nil {
				return err
			}
			runId, err := ledger.Start(c.Context, resuming, int64(queued))
			if err != nil {
				return fmt.Errorf("start run ledger entry: %w", err)
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runErr := crawler.Run(ctx)

			processed, _ := s.ProcessedCount(context.Background())
			if finishErr := ledger.Finish(context.Background(), runId, int64(processed), 0, 0, runErr); finishErr != nil {
				log.Error("failed to finalize run ledger entry", "err", finishErr)
			}
			return runErr
		},
	}
}

func stopCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "signal a running crawl (SIGTERM) to stop gracefully",
		Flags: []cli.Flag{&cli.IntFlag{Name: "pid", Usage: "process id of the running start command", Required: true}},
		Action: func(c *cli.Context) error {
			proc, err := os.FindProcess(c.Int("pid"))
			if err != nil {
				return err
			}
			return proc.Signal(syscall.SIGTERM)
		},
	}
}

func cleanCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "prune finished run-ledger entries older than the configured retention window",
		Flags: []cli.Flag{configFlag, variablesFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigFromCLI(c)
			if err != nil {
				return err
			}
			db, err := openCatalog(c.Context, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			cleaner := catalog.NewRunCleaner(db)
			cleanCfg := cfg.cleanConfig()
			before := cleanCfg.Delta
			deadline := nowMinus(before)
			deleted, err := cleaner.Clean(c.Context, &deadline)
			if err != nil {
				return err
			}
			log.Info("pruned finished runs", "count", deleted)
			return nil
		},
	}
}

func configCheckCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "configcheck",
		Usage: "parse and validate the config file without acting on it",
		Flags: []cli.Flag{configFlag, variablesFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigFromCLI(c)
			if err != nil {
				return err
			}
			log.Info("config OK", "store_path", cfg.StorePath, "catalog_dsn", cfg.CatalogDSN)
			return nil
		},
	}
}

func storeExportCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "storeexport",
		Usage: "dump every store partition into the catalog's snapshot table",
		Flags: []cli.Flag{configFlag, variablesFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigFromCLI(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.Open(c.Context, true); err != nil {
				return err
			}
			entries, err := s.ExportAll(c.Context)
			if err != nil {
				return err
			}

			db, err := openCatalog(c.Context, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ledger := catalog.NewRunLedger(db)
			runId, err := ledger.Start(c.Context, false, 0)
			if err != nil {
				return err
			}
			snap := catalog.NewSnapshotter(db)
			count, err := snap.Snapshot(c.Context, runId, entries)
			if err != nil {
				return err
			}
			if err := ledger.Finish(c.Context, runId, count, 0, 0, nil); err != nil {
				return err
			}
			log.Info("exported store", "entries", count, "run_id", runId)
			return nil
		},
	}
}

func storeImportCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "storeimport",
		Usage: "restore a catalog snapshot into the store",
		Flags: []cli.Flag{
			configFlag, variablesFlag,
			&cli.StringFlag{Name: "run-id", Usage: "run id of the snapshot to restore", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigFromCLI(c)
			if err != nil {
				return err
			}
			db, err := openCatalog(c.Context, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			runId, err := parseRunID(c.String("run-id"))
			if err != nil {
				return err
			}
			snap := catalog.NewSnapshotter(db)
			entries, err := snap.Restore(c.Context, runId)
			if err != nil {
				return err
			}

			s, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.Open(c.Context, false); err != nil {
				return err
			}
			if err := s.ImportAll(c.Context, entries); err != nil {
				return err
			}
			log.Info("imported snapshot", "run_id", runId)
			return nil
		},
	}
}

var _ store.CrawlStore = (*boltstore.Store)(nil)
