package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"medscan-bot/api/internal/config"
	"medscan-bot/api/internal/httpserver"
	"medscan-bot/api/internal/llm/openai"
	"medscan-bot/api/internal/ocr/gemini"
	"medscan-bot/api/internal/payment"
	"medscan-bot/api/internal/pipeline"
	"medscan-bot/api/internal/store"
	"medscan-bot/api/internal/telegram"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		fatal(log, "config", err)
	}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}

	// --- Postgres ---
	dsn := resolveDSN(cfg.DatabaseURL)
	if dsn == "" {
		fatal(log, "dsn", errors.New("set DATABASE_URL or POSTGRES_* env vars"))
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		fatal(log, "sql.Open", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		fatal(log, "db.Ping", err)
	}
	if err := store.InitSchema(ctx, db); err != nil {
		fatal(log, "schema", err)
	}
	cancel()
	log.Info("db.connected", "dsn", safeDSNSummary(dsn))

	users := store.NewUserRepo(db)
	specialists := store.NewSpecialistRepo(db)
	invoices := store.NewInvoiceRepo(db)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		fatal(log, "telegram", err)
	}
	bot.Debug = false
	log.Info("telegram.authorized", "username", bot.Self.UserName)

	// --- Pipeline ---
	ocrEngine, err := gemini.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		fatal(log, "gemini", err)
	}
	defer ocrEngine.Close()
	completer := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, log)

	tok, err := pipeline.NewBPE()
	if err != nil {
		fatal(log, "tokenizer", err)
	}
	analyzer := pipeline.NewAnalyzer(ocrEngine, completer, specialists, tok, log, cfg.InterpretMaxAttempts)

	merchant := payment.Merchant{
		Login:     cfg.MerchantLogin,
		Password1: cfg.MerchantPassword1,
		Password2: cfg.MerchantPassword2,
	}
	router := telegram.NewRouter(bot, users, specialists, invoices, analyzer, merchant, cfg.MainBot, log)

	// --- HTTP ---
	srv := httpserver.New(db, users, invoices, merchant, router.NotifyPayment, log)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		runWebhook(bot, router, srv, webhookURL, cfg, log)
	} else {
		runPollingMode(bot, router, srv, cfg, log)
	}
}

func fatal(log *slog.Logger, stage string, err error) {
	log.Error("startup", "stage", stage, "error", err)
	os.Exit(1)
}

// ---------------- Modes -----------------

func runWebhook(bot *tgbotapi.BotAPI, router *telegram.Router, srv *httpserver.Server,
	baseURL string, cfg *config.Config, log *slog.Logger) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		fatal(log, "webhook", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		fatal(log, "webhook", err)
	}

	srv.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upd, err := bot.HandleUpdate(r)
		if err != nil {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		go router.HandleUpdate(*upd)
	}))

	log.Info("webhook.listen", "path", path)
	if err := srv.Start(cfg.Port); err != nil {
		fatal(log, "http", err)
	}
}

func runPollingMode(bot *tgbotapi.BotAPI, router *telegram.Router, srv *httpserver.Server,
	cfg *config.Config, log *slog.Logger) {
	go func() {
		if err := srv.Start(cfg.Port); err != nil {
			fatal(log, "http", err)
		}
	}()
	runPolling(context.Background(), bot, log, func(upd tgbotapi.Update) {
		go router.HandleUpdate(upd)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// runPolling long-polls Telegram with backoff, never exiting on
// transient errors.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, log *slog.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("polling.stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Warn("polling.error", "error", err, "retry_in", d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// ---------------- Helpers -----------------

func resolveDSN(configured string) string {
	if v := strings.TrimSpace(configured); v != "" {
		return v
	}
	// Build DSN from POSTGRES_* / PG* env vars (single-container default)
	user := getenvDefault("POSTGRES_USER", "medscan")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	db := getenvDefault("POSTGRES_DB", "medscan")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// shortHash derives a stable non-secret webhook path from the token.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
