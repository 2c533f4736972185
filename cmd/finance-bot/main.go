package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/tyunth/finance-bot/internal/bot"
	"github.com/tyunth/finance-bot/internal/calendar"
	"github.com/tyunth/finance-bot/internal/dashboard"
	"github.com/tyunth/finance-bot/internal/finance"
	"github.com/tyunth/finance-bot/internal/learning"
	"github.com/tyunth/finance-bot/internal/receipt"
	"github.com/tyunth/finance-bot/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("finance-bot")
	var (
		token          = fs.StringLong("token", "", "Telegram bot token (or set FINANCE_BOT_TOKEN env var)")
		adminID        = fs.IntLong("admin-id", 0, "Telegram user id that receives lesson prompts")
		dbPath         = fs.StringLong("db", "finance.db", "SQLite database file path")
		learnPath      = fs.StringLong("learning-db", "learning.db", "Learned categories database file path")
		visionKey      = fs.StringLong("vision-key", "vision-key.json", "Google Cloud Vision service account key file")
		calendarKey    = fs.StringLong("calendar-key", "", "Google Calendar service account key file (optional)")
		calendarID     = fs.StringLong("calendar-id", "", "Google Calendar id to poll for lessons (optional)")
		calendarEvery  = fs.DurationLong("calendar-interval", 15*time.Minute, "How often to poll the lesson calendar")
		lessonPrice    = fs.IntLong("lesson-price", 4000, "Price of one lesson")
		listenAddr     = fs.StringLong("listen", ":8080", "Dashboard HTTP listen address")
		authUser       = fs.StringLong("auth-user", "", "Dashboard basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Dashboard basic auth password (optional)")
		strictReceipts = fs.BoolLong("strict-receipts", "Ask about receipt items whose price could not be resolved")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FINANCE_BOT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *token == "" {
		slog.Error("Telegram token is required. Set --token flag or FINANCE_BOT_TOKEN environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := finance.NewSQLiteDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := learning.NewBoltStore(*learnPath)
	if err != nil {
		slog.Error("Failed to initialize learning store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	slog.Info("Initializing Vision OCR...")
	oracle, err := scanning.NewVision(*visionKey)
	if err != nil {
		slog.Error("Failed to initialize Vision OCR", "error", err)
		os.Exit(1)
	}
	defer oracle.Close()

	parser := receipt.NewParser(oracle, receipt.Config{StrictUnresolved: *strictReceipts})

	var cal calendar.Service
	if *calendarKey != "" && *calendarID != "" {
		slog.Info("Initializing lesson calendar...", "calendar_id", *calendarID)
		cal, err = calendar.NewGoogleCalendar(*calendarKey, *calendarID)
		if err != nil {
			slog.Error("Failed to initialize calendar", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Lesson calendar not configured, skipping")
	}

	api, err := tgbotapi.NewBotAPI(*token)
	if err != nil {
		slog.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}

	b := bot.New(api, db, store, parser, cal, bot.Config{
		Token:            *token,
		AdminID:          int64(*adminID),
		DatabasePath:     *dbPath,
		CalendarID:       *calendarID,
		CalendarInterval: *calendarEvery,
		LessonPrice:      float64(*lessonPrice),
	})

	server := dashboard.NewServer(db, dashboard.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})
	go func() {
		if err := server.Start(*listenAddr); err != nil {
			slog.Error("Dashboard server error", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("Dashboard started", "address", *listenAddr)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		slog.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutting down...")
}
