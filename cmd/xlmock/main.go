package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xlmock/xlmock/internal/bank"
	"github.com/xlmock/xlmock/internal/handler"
	appI18n "github.com/xlmock/xlmock/internal/i18n"
	"github.com/xlmock/xlmock/internal/model"
	"github.com/xlmock/xlmock/internal/report"
	"github.com/xlmock/xlmock/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xlmock",
		Short: "Excel mock interviewer with a deterministic grader",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd(), questionsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `xlmock --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Interview language (en, ru)")
	f.StringP("questions", "q", "", "Path to a questions JSON file (empty = embedded bank)")
	f.String("transcripts-dir", "transcripts", "Directory for exported transcripts (empty = no auto-export)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <transcript.json>",
		Short: "Render an exported transcript as a table",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "Report language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List the question bank",
		RunE:  runQuestions,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "", "Path to a questions JSON file (empty = embedded bank)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("XLMOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("xlmock")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/xlmock")
	v.AddConfigPath("/etc/xlmock")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := model.Config{
		Addr:           v.GetString("addr"),
		Lang:           v.GetString("lang"),
		QuestionsPath:  v.GetString("questions"),
		TranscriptsDir: v.GetString("transcripts-dir"),
	}

	b, err := bank.Load(cfg.QuestionsPath)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	h := handler.New(store.New(b.Questions()), b, handler.NewMetrics(), cfg.TranscriptsDir)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"lang", cfg.Lang,
		"questions", b.Len(),
		"transcripts_dir", cfg.TranscriptsDir,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runReport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	tr, err := report.Load(args[0])
	if err != nil {
		return err
	}
	return renderTranscript(ctx, os.Stdout, tr)
}

func renderTranscript(ctx context.Context, w io.Writer, tr model.Transcript) error {
	fmt.Fprintln(w, appI18n.T(ctx, "AppTitle"))
	fmt.Fprintf(w, "Candidate: %s\n", tr.Candidate)
	fmt.Fprintf(w, "Session:   %s\n", tr.SessionID)
	fmt.Fprintf(w, "Started:   %s\n", tr.StartedAt.Format(time.RFC3339))
	if tr.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:  %s\n", tr.FinishedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{
				PerColumn: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignLeft},
			},
		},
	}))
	table.Header("ID", "Kind", "Weight", "Answer", "Score", "Confidence", "Notes")
	for _, q := range tr.Questions {
		answer := truncate(q.Answer, 32)
		if q.Skipped {
			answer = appI18n.T(ctx, "SkippedAnswer")
		}
		_ = table.Append(q.QuestionID, string(q.Kind), strconv.Itoa(q.Weight), answer,
			fmt.Sprintf("%.2f", q.Score), string(q.Confidence),
			truncate(strings.Join(q.Notes, "; "), 40))
	}
	table.Footer(tr.Candidate, "", "", "", fmt.Sprintf("%.1f", tr.Summary.WeightedScore))
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, appI18n.Td(ctx, "OverallScore", map[string]any{"Score": tr.Summary.WeightedScore}))
	if n := len(tr.Summary.ReviewQueue); n > 0 {
		fmt.Fprintln(w, appI18n.Tp(ctx, "AnswersFlagged", n))
	}

	fmt.Fprintf(w, "\n%s:\n", appI18n.T(ctx, "SummaryStrengths"))
	if len(tr.Summary.Strengths) == 0 {
		fmt.Fprintf(w, "  %s\n", appI18n.T(ctx, "NoneDetected"))
	}
	for _, s := range tr.Summary.Strengths {
		fmt.Fprintf(w, "  - %s\n", s)
	}
	if len(tr.Summary.Weaknesses) > 0 {
		fmt.Fprintf(w, "\n%s:\n", appI18n.T(ctx, "SummaryWeaknesses"))
		for _, weak := range tr.Summary.Weaknesses {
			fmt.Fprintf(w, "  - %s\n    %s\n", truncate(weak.Question, 72), weak.Tip)
		}
	}
	if len(tr.Summary.ReviewQueue) > 0 {
		fmt.Fprintf(w, "\n%s:\n", appI18n.T(ctx, "SummaryReview"))
		for _, item := range tr.Summary.ReviewQueue {
			fmt.Fprintf(w, "  - %s (%.2f): %s\n", item.QuestionID, item.Score, truncate(item.Question, 64))
		}
	}
	fmt.Fprintf(w, "\n%s:\n", appI18n.T(ctx, "SummaryNextSteps"))
	for _, step := range tr.Summary.NextSteps {
		fmt.Fprintf(w, "  - %s\n", step)
	}
	return nil
}

func runQuestions(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	b, err := bank.Load(v.GetString("questions"))
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{
				PerColumn: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignLeft},
			},
		},
	}))
	table.Header("ID", "Kind", "Weight", "Label", "Prompt")
	for _, q := range b.Questions() {
		_ = table.Append(q.ID, string(q.Kind), strconv.Itoa(q.Weight), q.Label, truncate(q.Prompt, 64))
	}
	return table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
