// -----------------------------------------------------------------------
// Last Modified: Wednesday, 29th July 2026 9:12:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/evidence"
	"github.com/jobops/triage/internal/handlers"
	"github.com/jobops/triage/internal/ingest"
	"github.com/jobops/triage/internal/jdresolver"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/mediaextract"
	"github.com/jobops/triage/internal/pdfexport"
	"github.com/jobops/triage/internal/pipeline"
	"github.com/jobops/triage/internal/rrexport"
	"github.com/jobops/triage/internal/scheduler"
	"github.com/jobops/triage/internal/scoring"
	"github.com/jobops/triage/internal/server"
	"github.com/jobops/triage/internal/storage/badger"
	"github.com/jobops/triage/internal/storage/sqlite"
)

var (
	configFile  = flag.String("config", "jobops.toml", "Configuration file path")
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")

	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("jobops version %s\n", common.GetVersion())
		os.Exit(0)
	}

	var err error
	config, err = common.LoadConfig(*configFile)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("path", *configFile).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *serverPort != 0 {
		config.Server.Port = *serverPort
	}
	if *serverHost != "" {
		config.Server.Host = *serverHost
	}

	logger = common.SetupLogger(config)
	common.InitLogger(logger)

	execPath, err := os.Executable()
	logDir := "./logs"
	if err == nil {
		logDir = filepath.Join(filepath.Dir(execPath), "logs")
	}
	common.InstallCrashHandler(logDir)
	defer common.RecoverWithCrashFile()

	common.PrintBanner(config, logger)

	storageMgr, err := sqlite.NewManager(logger, config.Storage.SQLite)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open sqlite storage")
	}
	defer storageMgr.Close()

	badgerDB, err := badger.Open(logger, config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open badger dedup-cache store")
	}
	defer badgerDB.Close()

	dedup := badger.NewMessageDedup(badgerDB)
	cursors := badger.NewCursorStore(badgerDB)
	_ = cursors // reserved for poller cursor resumption once a poller needs it

	llmCfg := llm.Config{
		Provider:        llm.ProviderType(config.LLM.Provider),
		Model:           config.LLM.Model,
		Temperature:     config.LLM.Temperature,
		MaxOutputTokens: config.LLM.MaxOutputTokens,
		Timeout:         config.LLM.TimeoutSeconds,
		ClaudeAPIKey:    config.LLM.APIKey,
		GeminiAPIKey:    config.LLM.APIKey,
	}

	ctx := context.Background()
	provider, err := llm.NewProvider(ctx, llmCfg)
	aiAvailable := err == nil
	if err != nil {
		logger.Warn().Err(err).Msg("LLM provider unavailable, AI-dependent stages will be skipped")
	} else {
		defer provider.Close()
	}

	synonyms, err := evidence.LoadSynonymMap([]byte(evidence.DefaultSynonymMapYAML))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse built-in synonym map")
	}

	fetchRPS, fetchBurst := config.Ingest.FetchRate()
	httpClient := ingest.NewDomainLimitedClient(&http.Client{Timeout: 30 * time.Second}, fetchRPS, fetchBurst)

	jdCfg := jdresolver.Config{
		Timeout:   config.JDFetch.FetchTimeout(),
		UserAgent: config.JDFetch.UserAgent,
	}

	scoringCfg := scoring.Config{
		MinJDChars:         config.Scoring.MinJDChars,
		MinTargetSignal:    config.Scoring.MinTargetSignal,
		ShortlistThreshold: config.Scoring.ShortlistThreshold,
		ArchiveThreshold:   config.Scoring.ArchiveThreshold,
		MaxOutputTokens:    config.LLM.MaxOutputTokens,
	}

	pipe := &pipeline.Pipeline{
		Storage:     storageMgr,
		Dedup:       dedup,
		Provider:    provider,
		HTTPClient:  httpClient,
		Logger:      logger,
		JDConfig:    jdCfg,
		ScoringCfg:  scoringCfg,
		IMAPConfig:  config.Pollers.IMAP,
		RSSConfig:   config.Pollers.RSS,
		Concurrency: config.Ingest.Concurrency(),
	}

	sched := scheduler.New(scheduler.Deps{
		Pollers:      pipe,
		Recovery:     pipe,
		ScorePending: pipe,
		AIAvailable:  aiAvailable,
		Logger:       logger,
	}, config.Scheduler)

	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	h := &handlers.Handlers{
		Storage:      storageMgr,
		Provider:     provider,
		HTTPClient:   httpClient,
		Logger:       logger,
		Dedup:        dedup,
		MediaExtract: mediaextract.Default{},
		PDFRenderer:  pdfexport.NewDefault(logger),
		RRExport: rrexport.NewDefault(rrexport.Config{
			Enabled: config.RRExport.Enabled,
			BaseURL: config.RRExport.BaseURL,
			APIKey:  config.RRExport.APIKey,
			Timeout: time.Duration(config.RRExport.TimeoutS) * time.Second,
		}),
		Synonyms:    synonyms,
		PackConfig:  config.Pack,
		Webhooks:    config.Webhooks,
		JDConfig:    jdCfg,
		ScoringCfg:  scoringCfg,
		Concurrency: config.Ingest.Concurrency(),
	}
	srv := server.New(h, logger, config.Server)

	shutdownChan := make(chan struct{})
	srv.SetShutdownChannel(shutdownChan)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("jobops ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case <-shutdownChan:
		logger.Info().Msg("Shutdown requested via HTTP")
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("jobops stopped")
}
