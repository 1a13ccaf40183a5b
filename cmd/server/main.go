package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/koopa0/kampung-games/internal"
)

func main() {
	cfg := internal.DefaultConfig()

	// 解析命令行參數
	flag.StringVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "服務器端口")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "日誌級別 (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "日誌格式 (text, json)")
	flag.StringVar(&cfg.PostgresURL, "postgres-url", cfg.PostgresURL, "PostgreSQL 連接字串（留空用內存後端）")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis 地址")
	flag.StringVar(&cfg.NATSUrl, "nats-url", cfg.NATSUrl, "NATS 地址（留空不發佈公告）")
	flag.StringVar(&cfg.StreakBackend, "streak-backend", cfg.StreakBackend, "連續紀錄後端 (memory, postgres, redis)")
	flag.BoolVar(&cfg.DemoMode, "demo", cfg.DemoMode, "展演模式：開放日期覆寫端點")
	flag.Parse()

	// 設置日誌
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// 持久層：有 PostgreSQL 就全量持久化，否則退到內存後端（開發模式）
	var (
		directory internal.Directory
		notices   internal.NoticeFeed
		streaks   internal.StreakStore
		messages  internal.MessageStore
		matches   internal.MatchStore
	)

	var pool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("連接 PostgreSQL 失敗", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := internal.NewPostgresStore(pool, logger)
		directory = pg
		notices = pg
		streaks = pg
		messages = pg
		matches = pg
		logger.Info("使用 PostgreSQL 持久層")
	} else {
		dir := internal.NewMemoryDirectory()
		directory = dir
		notices = internal.NewMemoryNoticeFeed(100)
		streaks = internal.NewMemoryStreakStore()
		messages = internal.NewLogMessageStore(logger)
		matches = internal.NewLogMatchStore(logger)
		logger.Warn("未配置 PostgreSQL，使用內存後端（不跨重啟）")
	}

	// 連續紀錄後端可獨立指定（聊天熱路徑讀寫小資料，Redis 更合適）
	switch cfg.StreakBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("連接 Redis 失敗", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		streaks = internal.NewRedisStreakStore(client)
		logger.Info("連續紀錄使用 Redis 後端", "addr", cfg.RedisAddr)
	case "postgres":
		if pool == nil {
			logger.Error("streak-backend=postgres 需要 -postgres-url")
			os.Exit(1)
		}
	case "memory":
		if pool != nil {
			streaks = internal.NewMemoryStreakStore()
		}
	default:
		logger.Error("未知的連續紀錄後端", "backend", cfg.StreakBackend)
		os.Exit(1)
	}

	// NATS 公告扇出
	if cfg.NATSUrl != "" {
		nc, err := nats.Connect(cfg.NATSUrl,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			logger.Error("連接 NATS 失敗", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		notices = internal.NewMultiNoticeFeed(notices, internal.NewNatsNoticeFeed(nc))
		logger.Info("公告同步發佈到 NATS", "url", cfg.NATSUrl)
	}

	// 展演時鐘
	clock := internal.SystemClock()
	var demoClock *internal.DemoClock
	if cfg.DemoMode {
		demoClock = internal.NewDemoClock()
		clock = demoClock
		logger.Warn("展演模式已啟用，/demo/set_date 可覆寫日期")
	}

	// 核心組件接線
	registry := internal.NewRegistry()
	matchmaker := internal.NewMatchmaker(logger)
	presence := internal.NewPresence()
	hub := internal.NewHub(directory, logger)
	engine := internal.NewGameEngine(registry, directory, notices, matches, hub, logger)
	streakTracker := internal.NewStreakTracker(streaks, clock, logger)
	dm := internal.NewDMService(streakTracker, messages, clock, hub, logger)
	hub.Attach(matchmaker, registry, engine, presence, dm)

	handler := internal.NewHandler(hub, matchmaker, engine, presence, demoClock, logger)

	// 創建 HTTP 服務器
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: handler.Routes(),
		// WebSocket 長連接，不設全局讀寫超時，心跳由 Hub 負責
		IdleTimeout: 120 * time.Second,
	}

	// 啟動服務器
	go func() {
		logger.Info("對局服務器啟動",
			"port", cfg.HTTPPort,
			"log_level", cfg.LogLevel,
			"streak_backend", cfg.StreakBackend)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("服務器啟動失敗", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("收到關閉信號，開始優雅關閉...")

	// 優雅關閉
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 停止接受新連接
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("服務器關閉失敗", "error", err)
	}

	// 停止 WebSocket Hub
	hub.Stop()

	logger.Info("服務器已關閉")
}

// setupLogger 設置日誌
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug", // debug 模式顯示源碼位置
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
