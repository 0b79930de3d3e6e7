// Command cli runs maintenance tasks against the configured store.
//
//	cli reconcile -code abc1234
//	cli purge-expired
//	cli export > urls.json
//	cli import -file urls.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shorturl/internal/bootstrap"
	"shorturl/internal/clickqueue"
	"shorturl/internal/config"
	"shorturl/internal/domain"
	"shorturl/internal/service"
	"shorturl/internal/shortcode"
	"shorturl/pkg/logger"
)

const usage = "expected 'reconcile', 'purge-expired', 'export' or 'import' subcommands"

// exportPageSize is how many records export reads per List call.
const exportPageSize = service.MaxListLimit

type app struct {
	stores   *bootstrap.Stores
	urls     *service.URLService
	bulk     *service.BulkService
	recorder *clickqueue.Recorder
	log      *logger.Logger

	batchSize int
}

func main() {
	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	reconcileCode := reconcileCmd.String("code", "", "short code whose click_count is rebuilt")
	purgeCmd := flag.NewFlagSet("purge-expired", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file with an array of {original_url, custom_alias, expires_in_hours}")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Logs go to stderr so export output stays clean.
	appLogger := logger.NewWithFormat(cfg.App.LogLevel, cfg.App.LogFormat, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer a.close()

	switch os.Args[1] {
	case "reconcile":
		_ = reconcileCmd.Parse(os.Args[2:])
		if *reconcileCode == "" {
			reconcileCmd.PrintDefaults()
			os.Exit(1)
		}
		err = a.reconcile(ctx, *reconcileCode)
	case "purge-expired":
		_ = purgeCmd.Parse(os.Args[2:])
		err = a.purgeExpired(ctx)
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		err = a.export(ctx)
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = a.importFile(ctx, *importFile)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		a.close()
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	stores, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	recorder := clickqueue.New(stores.Clicks, clickqueue.Options{
		QueueSize:    cfg.Clicks.QueueSize,
		Workers:      1,
		WriteTimeout: cfg.Clicks.WriteTimeout,
	}, log)

	var cache service.Cache
	if stores.Cache != nil {
		cache = stores.Cache
	}
	urls := service.NewURLService(stores.URLs, cache, shortcode.New(cfg.App.ShortCodeLength), recorder, log)

	return &app{
		stores:   stores,
		urls:     urls,
		bulk:     service.NewBulkService(urls, cfg.Bulk.MaxItems, cfg.Bulk.Parallelism, log),
		recorder: recorder,
		log:      log,

		batchSize: cfg.Bulk.MaxItems,
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.recorder.Stop(ctx)
	a.stores.Close()
}

func (a *app) reconcile(ctx context.Context, code string) error {
	count, err := a.urls.ReconcileClicks(ctx, code)
	if err != nil {
		return err
	}
	fmt.Printf("%s: click_count=%d\n", code, count)
	return nil
}

func (a *app) purgeExpired(ctx context.Context) error {
	n, err := a.urls.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	// Cached copies of purged rows would otherwise resolve as expired until their TTL.
	if a.stores.Cache != nil {
		cleared, err := a.stores.Cache.Clear(ctx)
		if err != nil {
			a.log.Warn("cache clear failed", "error", err)
		} else {
			a.log.Info("cache cleared", "keys", cleared)
		}
	}
	fmt.Printf("purged %d expired URLs\n", n)
	return nil
}

// export writes every active URL to stdout as one JSON array.
func (a *app) export(ctx context.Context) error {
	all := make([]*domain.URL, 0)
	for offset := 0; ; offset += exportPageSize {
		page, total, err := a.urls.List(ctx, offset, exportPageSize)
		if err != nil {
			return err
		}
		all = append(all, page...)
		if len(page) == 0 || int64(offset+len(page)) >= total {
			break
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(all)
}

// importFile creates the URLs listed in filename in bulk-sized batches.
// Per-item failures are reported and do not stop the import.
func (a *app) importFile(ctx context.Context, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	var items []domain.BulkItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	created, failed := 0, 0
	for start := 0; start < len(items); start += a.batchSize {
		end := min(start+a.batchSize, len(items))
		res, err := a.bulk.CreateMany(ctx, items[start:end])
		if err != nil {
			return err
		}
		for _, r := range res.Results {
			if r.Error != "" {
				a.log.Warn("import item failed", "url", r.OriginalURL, "kind", r.ErrorKind, "error", r.Error)
			}
		}
		created += res.SuccessCount()
		failed += res.ErrorCount()
	}

	fmt.Printf("imported %d URLs, %d failed\n", created, failed)
	return nil
}
