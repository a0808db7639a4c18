package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/teamoffsite/promptbingo/internal/ai"
	"github.com/teamoffsite/promptbingo/internal/ai/openai"
	"github.com/teamoffsite/promptbingo/internal/api"
	"github.com/teamoffsite/promptbingo/internal/board"
	"github.com/teamoffsite/promptbingo/internal/config"
	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/game"
	"github.com/teamoffsite/promptbingo/internal/notify"
	"github.com/teamoffsite/promptbingo/internal/ratelimit"
	"github.com/teamoffsite/promptbingo/internal/store"
	"github.com/teamoffsite/promptbingo/internal/ws"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Prompt Bingo - multiplayer prompt bingo with a wish/worry board

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                 Port to listen on (default: 8080)
  OPENAI_API_KEY       OpenAI API key (optional; enables AI validation and insights)
  OPENAI_BASE_URL      Custom OpenAI API base URL (optional)
  OPENAI_MODEL         Model for validation and insights (default: gpt-4o-mini)
  STORE_PATH           SQLite database path (default: in-memory store)
  NATS_URL             NATS server URL for change notifications (default: in-process)
  RATE_LIMIT_CAPACITY  AI requests per caller per window (default: 10)
  RATE_LIMIT_WINDOW    Rate limit window (default: 60s)
  AUTOPLAY_INTERVAL    Delay between automatic prompt draws (default: 2s)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000

Visit http://localhost:8080 after starting the server.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Prompt Bingo %s\n", version)
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	logger := zerologlog.Logger

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Change notifier: NATS when configured, in-process hub otherwise
	var notifier notify.Notifier
	if cfg.NATSURL != "" {
		nats, err := notify.NewNATS(cfg.NATSURL, "promptbingo", logger)
		if err != nil {
			log.Fatal(err)
		}
		defer nats.Close()
		notifier = nats
		logger.Info().Str("url", cfg.NATSURL).Msg("using NATS notifier")
	} else {
		notifier = notify.NewHub()
	}

	// Store: sqlite when a path is configured, in-memory otherwise
	var st store.Store
	if cfg.StorePath != "" {
		sq, err := store.OpenSQLite(cfg.StorePath, notifier)
		if err != nil {
			log.Fatal(err)
		}
		st = sq
		logger.Info().Str("path", cfg.StorePath).Msg("using sqlite store")
	} else {
		st = store.NewMemory(notifier)
	}
	defer st.Close()

	// Services
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	games := game.NewService(st, deck.Catalog, rng, logger)

	var provider ai.Provider
	if cfg.OpenAIAPIKey != "" {
		provider = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	} else {
		logger.Warn().Msg("no OPENAI_API_KEY set, AI validation and insights use local fallbacks")
	}
	validator := &ai.Validator{Provider: provider, Model: cfg.OpenAIModel, Log: logger}
	summarizer := &ai.Summarizer{Provider: provider, Model: cfg.OpenAIModel, Log: logger}
	boards := board.NewService(st, summarizer, logger)

	apiSrv := &api.Server{
		Games:     games,
		Boards:    boards,
		Validator: validator,
		Limiter:   ratelimit.New(cfg.RateLimitCapacity, cfg.RateLimitWindow, clockwork.NewRealClock()),
		Autoplay: &game.Autoplay{
			Service:  games,
			Clock:    clockwork.NewRealClock(),
			Interval: cfg.AutoplayInterval,
			Log:      logger,
		},
		Log: logger,
	}
	apiSrv.Register(r)

	sock := ws.New(games, boards)
	io := sock.Mount(r)
	defer io.Close()

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
