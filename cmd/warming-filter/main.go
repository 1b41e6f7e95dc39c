package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Twine-Labs/instantly-email-warming-filter/internal/classify"
	"github.com/Twine-Labs/instantly-email-warming-filter/internal/rate"
	"github.com/Twine-Labs/instantly-email-warming-filter/internal/runtime"
	"github.com/Twine-Labs/instantly-email-warming-filter/internal/warming"
)

type filterConfig struct {
	clientSecret    string
	credentials     string
	label           string
	tag             string
	policy          string
	fetchMode       string
	poolSize        int
	microBatchSize  int
	rps             float64
	period          time.Duration
	window          time.Duration
	backfillPage    int64
	forceHistorical bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("warming-filter failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() filterConfig {
	clientSecret := flag.String("client-secret", "client_secret.json", "OAuth client secret file")
	credentials := flag.String("credentials", "credentials.json", "persisted OAuth token file")
	label := flag.String("label", warming.DefaultLabel, "label applied to warming mail")
	tag := flag.String("tag", "YCEWFAF", "warming tag expected in the Subject header")
	policy := flag.String("policy", "tag", "classification policy: tag or pattern")
	fetchMode := flag.String("fetch-mode", string(warming.FetchMicroBatch), "classification scheduling: microbatch or pool")
	poolSize := flag.Int("pool-size", 10, "concurrent fetches in pool mode")
	microBatchSize := flag.Int("batch-size", 30, "fetches per micro-batch in microbatch mode")
	rps := flag.Float64("rps", 1.3, "max fetch batches per second")
	period := flag.Duration("period", time.Hour, "poll loop period")
	window := flag.Duration("window", 120*24*time.Hour, "historical sweep lookback")
	backfillPage := flag.Int64("backfill-page-size", 500, "historical sweep list page size (<=500)")
	forceHistorical := flag.Bool("force-historical", false, "run the historical sweep even with stored credentials")
	flag.Parse()

	return filterConfig{
		clientSecret:    *clientSecret,
		credentials:     *credentials,
		label:           *label,
		tag:             *tag,
		policy:          *policy,
		fetchMode:       *fetchMode,
		poolSize:        *poolSize,
		microBatchSize:  *microBatchSize,
		rps:             *rps,
		period:          *period,
		window:          *window,
		backfillPage:    *backfillPage,
		forceHistorical: *forceHistorical,
	}
}

func run(cfg filterConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	client, loggedIn, err := runtime.NewGmailClient(ctx, runtime.Options{
		ClientSecretFile: cfg.clientSecret,
		CredentialsFile:  cfg.credentials,
	}, logger)
	if errors.Is(err, runtime.ErrMissingClientSecret) {
		logger.Info("no client secret file found, please download it from google", "path", cfg.clientSecret)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	livePolicy, err := classify.ForName(cfg.policy, cfg.tag, false)
	if err != nil {
		return err
	}
	// the historical sweep also scans decoded bodies for the tag
	backfillPolicy, err := classify.ForName(cfg.policy, cfg.tag, true)
	if err != nil {
		return err
	}

	mode, err := warming.ModeForName(cfg.fetchMode)
	if err != nil {
		return err
	}

	limiter := rate.NewTokenBucket(cfg.rps)
	defer limiter.Stop()

	svc := warming.NewService(client, limiter, logger)
	svc.Mode = mode
	svc.PoolSize = cfg.poolSize
	svc.MicroBatchSize = cfg.microBatchSize

	if loggedIn || cfg.forceHistorical {
		if _, backfillErr := svc.Backfill(ctx, warming.BackfillSpec{
			Label:    cfg.label,
			Policy:   backfillPolicy,
			Window:   cfg.window,
			PageSize: cfg.backfillPage,
		}); backfillErr != nil {
			return fmt.Errorf("run historical sweep: %w", backfillErr)
		}
	}

	if pollErr := svc.Poll(ctx, warming.PollSpec{
		Label:  cfg.label,
		Policy: livePolicy,
		Period: cfg.period,
	}); pollErr != nil {
		return fmt.Errorf("run poll loop: %w", pollErr)
	}
	return nil
}
