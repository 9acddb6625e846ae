// Command sara runs the Slack business assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sarabot/internal/config"
	"sarabot/internal/doctmpl"
	"sarabot/internal/domain"
	"sarabot/internal/extract"
	"sarabot/internal/handler"
	"sarabot/internal/history"
	"sarabot/internal/intent"
	"sarabot/internal/llm"
	"sarabot/internal/mailer"
	"sarabot/internal/metrics"
	"sarabot/internal/router"
	"sarabot/internal/sheets"
	"sarabot/internal/slackbot"
	"sarabot/internal/state"
	"sarabot/internal/status"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "sara",
		Short:         "Sara, the Slack business assistant",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigPath(), "path to config file")

	root.AddCommand(
		serveCmd(&cfgPath),
		doctorCmd(&cfgPath),
		initCmd(&cfgPath),
		classifyCmd(&cfgPath),
	)
	return root
}

func initCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(*cfgPath); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", *cfgPath)
			}
			if err := config.Save(*cfgPath, config.Defaults()); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\nFill in the Slack, OpenAI, Sheets and SMTP sections, then run `sara serve`.\n", *cfgPath)
			return nil
		},
	}
}

func classifyCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Show how a message would be routed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger("error", "")
			rules, client := intent.DefaultRules(), domain.LLM(llm.NewPatternFallback())

			if cfg, err := config.Load(*cfgPath); err == nil {
				if cfg.Intent.RulesFile != "" {
					if loaded, err := intent.LoadRules(cfg.Intent.RulesFile); err == nil {
						rules = loaded
					}
				}
				client = buildLLM(cfg, logger)
			}

			classifier, err := intent.NewClassifier(rules, client, logger)
			if err != nil {
				return err
			}
			label := classifier.Classify(cmd.Context(), strings.Join(args, " "))
			fmt.Println(string(label))
			return nil
		},
	}
}

func doctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check every configured dependency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger := newLogger("error", "")
			checker := buildChecker(cfg, logger)

			report := checker.Report(cmd.Context())
			// The report uses Slack emoji codes; plain markers read better
			// in a terminal.
			report = strings.NewReplacer(
				":white_check_mark:", "[ok]",
				":x:", "[fail]",
				"*", "",
			).Replace(report)
			fmt.Println(report)
			return nil
		},
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Slack and handle messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger := newLogger(cfg.General.LogLevel, cfg.General.LogFile)
	logger.Info("starting sara", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := buildLLM(cfg, logger)

	reader := buildReader(cfg, logger)

	ttl := time.Duration(cfg.General.StateTTLMinutes) * time.Minute
	states := state.NewStore(ttl, logger)
	confirmations := state.NewConfirmations(ttl)
	recentBrands := state.NewBrandCache(ttl)
	go states.Janitor(ctx, 5*time.Minute)
	go reapConfirmations(ctx, confirmations, 5*time.Minute, logger)

	var hist *history.Store
	if cfg.History.Enabled {
		var err error
		hist, err = history.Open(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer hist.Close()
		go purgeHistory(ctx, hist, cfg.History.RetentionDays, logger)
	}

	extractor := extract.New(client, logger)
	service := sheets.NewService(reader, client, logger)

	var pdf doctmpl.PDFExporter
	var statusDoc func(ctx context.Context) (string, error)
	if hr, ok := reader.(*sheets.HTTPReader); ok && hr.HasOAuth() {
		pdf = doctmpl.NewDriveExporter(hr.TokenSource(), logger)
		statusDoc = sheets.NewStatusDoc(hr.TokenSource(), cfg.Sheets.StatusDocTitle, logger).Read
	} else {
		logger.Warn("no OAuth token, documents will be shared as docx instead of PDF")
	}

	var mail mailer.Mailer
	if cfg.SMTP.SenderEmail != "" {
		var err error
		mail, err = mailer.NewSMTP(mailer.Config{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			SenderEmail: cfg.SMTP.SenderEmail,
			SenderName:  cfg.SMTP.SenderName,
			Password:    cfg.SMTP.Password,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("configure mailer: %w", err)
		}
	}

	rules := intent.DefaultRules()
	if cfg.Intent.RulesFile != "" {
		loaded, err := intent.LoadRules(cfg.Intent.RulesFile)
		if err != nil {
			logger.Warn("could not load intent rules, using defaults", "file", cfg.Intent.RulesFile, "error", err)
		} else {
			rules = loaded
		}
	}
	classifier, err := intent.NewClassifier(rules, client, logger)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	checker := buildChecker(cfg, logger)

	agreement := handler.NewAgreement(handler.AgreementConfig{
		Extractor:    extractor,
		States:       states,
		Filler:       doctmpl.DocxFiller{},
		PDF:          pdf,
		TemplatePath: cfg.Templates.AgreementPath,
		OutputDir:    cfg.Templates.OutputDir,
		Logger:       logger,
	})
	invoice := handler.NewInvoice(handler.InvoiceConfig{
		Extractor:     extractor,
		States:        states,
		Reader:        reader,
		Filler:        doctmpl.DocxFiller{},
		PDF:           pdf,
		RecentBrands:  recentBrands,
		MasterSheetID: cfg.Sheets.BrandMasterSheetID,
		MasterRange:   cfg.Sheets.BrandMasterRange,
		TemplatePath:  cfg.Templates.InvoicePath,
		OutputDir:     cfg.Templates.OutputDir,
		Logger:        logger,
	})
	brandInfo := handler.NewBrandInfo(handler.BrandInfoConfig{
		Extractor:     extractor,
		Reader:        reader,
		Confirmations: confirmations,
		RecentBrands:  recentBrands,
		MasterSheetID: cfg.Sheets.BrandMasterSheetID,
		MasterRange:   cfg.Sheets.BrandMasterRange,
		Logger:        logger,
	})
	sheetsHandler := handler.NewSheets(handler.SheetsConfig{
		Service:         service,
		Reader:          reader,
		IsPayment:       classifier.IsPayment,
		MasterSheetID:   cfg.Sheets.BrandMasterSheetID,
		MasterRange:     cfg.Sheets.BrandMasterRange,
		BalancesSheetID: cfg.Sheets.BrandBalancesSheetID,
		BalancesRange:   cfg.Sheets.BrandBalancesRange,
		Logger:          logger,
	})
	email := handler.NewEmail(handler.EmailConfig{
		Extractor:     extractor,
		LLM:           client,
		Mailer:        mail,
		Confirmations: confirmations,
		SenderName:    cfg.SMTP.SenderName,
		Logger:        logger,
	})
	help := handler.NewHelp(handler.HelpConfig{
		States:    states,
		History:   hist,
		Service:   checker.Report,
		StatusDoc: statusDoc,
		Logger:    logger,
	})

	r := router.New(router.Config{
		Classifier: classifier,
		Agreement:  agreement,
		Invoice:    invoice,
		BrandInfo:  brandInfo,
		Sheets:     sheetsHandler,
		Email:      email,
		Help:       help,
		History:    hist,
		Logger:     logger,
	})

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics, logger)
	}

	bot := slackbot.New(cfg.Slack.BotToken, cfg.Slack.AppToken, r, logger)
	err = bot.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func buildLLM(cfg *config.Config, logger *slog.Logger) domain.LLM {
	if cfg.OpenAI.APIKey == "" || strings.Contains(cfg.OpenAI.APIKey, "${") {
		logger.Warn("no OpenAI API key, running on pattern matching only")
		return llm.NewPatternFallback()
	}
	openai := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		APIBase:     cfg.OpenAI.APIBase,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		Logger:      logger,
	})
	// An OpenAI outage degrades to pattern matching instead of failing.
	return llm.NewChain(logger, openai, llm.NewPatternFallback())
}

func buildReader(cfg *config.Config, logger *slog.Logger) sheets.Reader {
	reader, err := sheets.NewHTTPReader(sheets.ReaderConfig{
		APIKey:          cfg.Sheets.APIKey,
		TokenFile:       cfg.Sheets.TokenFile,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		Logger:          logger,
	})
	if err != nil {
		logger.Warn("sheets access not configured", "error", err)
		return nil
	}
	return reader
}

func buildChecker(cfg *config.Config, logger *slog.Logger) *status.Checker {
	client := buildLLM(cfg, logger)
	reader := buildReader(cfg, logger)

	checks := []status.Check{
		status.LLMCheck(client),
		status.TemplateCheck("Agreement template", cfg.Templates.AgreementPath),
		status.TemplateCheck("Invoice template", cfg.Templates.InvoicePath),
		status.SMTPCheck(cfg.SMTP.Host, cfg.SMTP.Port),
	}
	if reader != nil {
		checks = append(checks, status.SheetsCheck(reader, cfg.Sheets.BrandMasterSheetID, cfg.Sheets.BrandMasterRange))
	}
	return status.NewChecker(logger, checks...)
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Endpoint, metrics.Collector.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint up", "addr", srv.Addr, "path", cfg.Endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

func reapConfirmations(ctx context.Context, c *state.Confirmations, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Reap(); n > 0 {
				logger.Info("reaped stale confirmations", "count", n)
			}
		}
	}
}

func purgeHistory(ctx context.Context, hist *history.Store, retentionDays int, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := hist.Purge(ctx, time.Duration(retentionDays)*24*time.Hour); err != nil {
				logger.Warn("history purge failed", "error", err)
			}
		}
	}
}

func newLogger(level, logFile string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot open log file, logging to stderr:", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
}
