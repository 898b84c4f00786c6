// Command analytics-batch computes the analytics snapshot of every customer of
// a tenant and writes them as JSON lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fastygo/crm-analytics/api/transport"
	"github.com/fastygo/crm-analytics/internal/bootstrap"
	"github.com/fastygo/crm-analytics/internal/config"
	"github.com/fastygo/crm-analytics/internal/services/lifecycle"
	"github.com/fastygo/crm-analytics/pkg/logger"
	analyticsUC "github.com/fastygo/crm-analytics/usecase/analytics"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	tenantID := flag.String("tenant", "", "tenant to export (required)")
	outPath := flag.String("out", "-", "output file, - for stdout")
	concurrency := flag.Int("concurrency", cfg.Analytics.BatchWorkers, "customers computed in parallel")
	asOfFlag := flag.String("as-of", "", "reference instant (RFC 3339 or YYYY-MM-DD), defaults to now")
	customers := flag.String("customers", "", "comma separated customer ids, defaults to every customer of the tenant")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	flag.Parse()

	if strings.TrimSpace(*tenantID) == "" {
		flag.Usage()
		os.Exit(2)
	}
	asOf, err := transport.ParseInstant(*asOfFlag)
	if err != nil {
		log.Fatalf("invalid -as-of: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	ctx, cancel := manager.Listen(context.Background())
	defer cancel()

	history, err := bootstrap.OpenHistory(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("history store connection failed", zap.Error(err))
	}
	manager.RegisterCloser("history_store", history)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	uc := analyticsUC.New(history.Repository, nil, nil, bootstrap.EngineOptions(cfg.Analytics), nil, zapLogger)
	ctx = logger.ContextWithTenant(ctx, *tenantID)

	ids := splitIDs(*customers)
	if len(ids) == 0 {
		if ids, err = uc.CustomerIDs(ctx, *tenantID); err != nil {
			zapLogger.Fatal("list customers failed", zap.Error(err))
		}
	}

	out, closeOut, err := openOutput(*outPath)
	if err != nil {
		zapLogger.Fatal("open output failed", zap.Error(err))
	}
	buffered := bufio.NewWriter(out)

	barWriter := io.Writer(os.Stderr)
	if *quiet {
		barWriter = io.Discard
	}
	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(barWriter),
		progressbar.OptionSetDescription("snapshots"),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(barWriter) }),
	)

	started := time.Now()
	exp := newExporter(buffered, bar)
	runErr := uc.BatchCompute(ctx, *tenantID, ids, asOf, *concurrency, exp.record)

	if err := buffered.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if err := closeOut(); err != nil && runErr == nil {
		runErr = err
	}

	zapLogger.Info("batch finished",
		zap.String("tenant_id", *tenantID),
		zap.Int("customers", len(ids)),
		zap.Int("written", exp.written),
		zap.Int("failed", exp.failed),
		zap.Duration("elapsed", time.Since(started)))

	if runErr != nil {
		zapLogger.Error("batch aborted", zap.Error(runErr))
		_ = manager.Shutdown(context.Background())
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
