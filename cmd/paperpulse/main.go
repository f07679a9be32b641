// Package main provides the PaperPulse CLI: a daily pipeline collecting
// trending AI papers and repositories, summarizing them and mailing the
// report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paperpulse/paperpulse/internal/config"
	"github.com/paperpulse/paperpulse/internal/feed"
	"github.com/paperpulse/paperpulse/internal/mail"
	"github.com/paperpulse/paperpulse/internal/pipeline"
	"github.com/paperpulse/paperpulse/internal/report"
	"github.com/paperpulse/paperpulse/internal/schedule"
	"github.com/paperpulse/paperpulse/internal/store"
	"github.com/paperpulse/paperpulse/internal/summary"
)

var (
	configPath string
	dateFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "paperpulse",
	Short: "Daily trending AI papers and repositories digest",
	Long: `PaperPulse collects the day's trending AI papers and GitHub
repositories, summarizes them through a language-model API and delivers the
rendered report by email.

Environment variables:
  OPENAI_API_KEY      API key for the summarization model (required)
  OPENAI_BASE_URL     Optional OpenAI-compatible gateway URL
  GITHUB_TOKEN        GitHub token for higher README rate limits (optional)
  MAIL_CLIENT_ID      Transactional mail API client ID
  MAIL_CLIENT_SECRET  Transactional mail API client secret
  SMTP_PASSWORD       Password for the SMTP transport`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline run: crawl, summarize, render, send",
	RunE:  runRun,
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch trending papers and repositories into the daily document",
	RunE:  runCrawl,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate both summary tiers for the stored daily document",
	RunE:  runSummarize,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the Markdown and HTML reports from the stored document",
	RunE:  runRender,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver an already-rendered HTML report",
	RunE:  runSend,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run forever, triggering one pipeline run per day at the configured time",
	RunE:  runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dateFlag, "date", "", "run date as YYYYMMDD (default today)")
	rootCmd.AddCommand(runCmd, crawlCmd, summarizeCmd, renderCmd, sendCmd, daemonCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles everything a subcommand needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	docs     *store.Store
	renderer *report.Renderer
	sender   mail.Sender
}

func newApp(ctx context.Context, withSender bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogLevel)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		docs:     store.New(cfg.MaterialsDir, logger),
		renderer: report.New(cfg.TemplatePath, cfg.MaterialsDir, logger),
	}

	if withSender {
		a.sender, err = newSender(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	completions, err := summary.NewClient(a.cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}
	summarizer := summary.New(completions, a.cfg.SummaryLanguage, a.cfg.SummaryBudget, a.logger)

	ghClient, err := feed.NewGitHubClient()
	if err != nil {
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}

	arxiv := feed.NewArxivClient("", nil)
	papers := feed.NewPaperFetcher(a.cfg.MirrorURL, nil, arxiv, a.logger)
	repos := feed.NewRepoFetcher(a.cfg.TrendingURL, a.cfg.TopRepos, a.cfg.DetailDelay(), nil, ghClient, a.logger)

	return pipeline.New(papers, repos, summarizer, a.docs, a.renderer, a.sender,
		a.cfg.Recipients, a.cfg.Subject, a.cfg.RepoFetchTimeout(), a.logger), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}

	date, err := runDate()
	if err != nil {
		return err
	}

	result, runErr := p.Run(ctx, date)
	printResult(result)
	return runErr
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}

	date, err := runDate()
	if err != nil {
		return err
	}

	result, runErr := p.Crawl(ctx, date)
	printResult(result)
	return runErr
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}

	date, err := runDate()
	if err != nil {
		return err
	}

	result, runErr := p.Summarize(ctx, date)
	printResult(result)
	return runErr
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), false)
	if err != nil {
		return err
	}

	date, err := runDate()
	if err != nil {
		return err
	}

	doc, err := a.docs.Read(date)
	if err != nil {
		return err
	}

	mdPath, htmlPath, err := a.renderer.RenderFiles(doc, date)
	if err != nil {
		return err
	}

	fmt.Printf("Rendered:\n  %s\n  %s\n", mdPath, htmlPath)
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	if a.sender == nil {
		return fmt.Errorf("no mail transport configured (mail_transport: %s)", a.cfg.MailTransport)
	}

	date, err := runDate()
	if err != nil {
		return err
	}

	htmlPath := a.docs.Path(date)
	htmlPath = htmlPath[:len(htmlPath)-len(".json")] + ".html"
	body, err := os.ReadFile(htmlPath)
	if err != nil {
		return fmt.Errorf("read rendered report (run `paperpulse render` first): %w", err)
	}

	subject := fmt.Sprintf("%s (%s)", a.cfg.Subject, date.Format("2006-01-02"))
	if err := a.sender.Send(ctx, a.cfg.Recipients, subject, string(body)); err != nil {
		return err
	}

	fmt.Printf("Sent to %d recipients\n", len(a.cfg.Recipients))
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}

	scheduler, err := schedule.New(a.cfg.Timezone, a.logger)
	if err != nil {
		return err
	}

	err = scheduler.Schedule(a.cfg.SendTime, func() {
		date := time.Now()
		result, runErr := p.Run(ctx, date)
		if runErr != nil {
			a.logger.Error("scheduled run failed", "date", date.Format(store.DateLayout), "error", runErr)
		}
		printResult(result)
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	a.logger.Info("daemon started", "send_time", a.cfg.SendTime, "timezone", a.cfg.Timezone)

	<-ctx.Done()
	a.logger.Info("shutting down")
	scheduler.Stop()
	return nil
}

func newSender(ctx context.Context, cfg config.Config, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.MailTransport {
	case config.TransportAPI:
		return mail.NewAPISender(ctx, mail.APIConfig{
			BaseURL:      cfg.MailAPI.BaseURL,
			SenderEmail:  cfg.MailAPI.SenderEmail,
			ClientID:     os.Getenv("MAIL_CLIENT_ID"),
			ClientSecret: os.Getenv("MAIL_CLIENT_SECRET"),
			TemplateID:   cfg.MailAPI.TemplateID,
		}, nil, logger)
	case config.TransportSMTP:
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			SenderEmail: cfg.SMTP.SenderEmail,
			Password:    os.Getenv("SMTP_PASSWORD"),
		}, logger), nil
	default:
		return nil, nil
	}
}

func newLogger(level string) *slog.Logger {
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
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func runDate() (time.Time, error) {
	if dateFlag == "" {
		return time.Now(), nil
	}
	date, err := time.ParseInLocation(store.DateLayout, dateFlag, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYYMMDD: %w", dateFlag, err)
	}
	return date, nil
}

func printResult(result *pipeline.Result) {
	if result == nil {
		return
	}
	fmt.Println()
	fmt.Printf("Run %s for %s\n", result.RunID, result.Date.Format(store.DateLayout))
	printStage("papers", result.Papers)
	printStage("repos", result.Repos)
	printStage("summaries", result.Summaries)
	printStage("delivery", result.Delivery)
	if result.MDPath != "" {
		fmt.Printf("  report:    %s\n", result.MDPath)
	}
	if result.Duration > 0 {
		fmt.Printf("  duration:  %s\n", result.Duration.Round(time.Second))
	}
}

func printStage(name string, stage pipeline.Stage) {
	if stage.Skipped {
		fmt.Printf("  %-10s skipped (%s)\n", name+":", stage.Reason)
		return
	}
	fmt.Printf("  %-10s %d\n", name+":", stage.Items)
}
