package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"snakearena/game"
	"snakearena/record"
	"snakearena/server"
	"snakearena/store"
)

// envOr 读取环境变量（可来自 .env），为空时使用默认值
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// SnakeArena 入口：启动引擎循环、HTTP + WebSocket 服务、持久化与录像
func main() {
	// .env 可选，不存在时只用进程环境变量
	envErr := godotenv.Load()

	var (
		addr        string
		tuningPath  string
		dbPath      string
		logPath     string
		logLevel    string
		recordDir   string
		recordEvery int
		webDir      string
	)
	flag.StringVar(&addr, "addr", envOr("SNAKE_ADDR", ":8080"), "server listen address, e.g. :8080")
	flag.StringVar(&tuningPath, "config", envOr("SNAKE_CONFIG", ""), "YAML tuning file (empty = defaults)")
	flag.StringVar(&dbPath, "db", envOr("SNAKE_DB", "data/arena.db"), "SQLite database path (empty = no persistence)")
	flag.StringVar(&logPath, "log", envOr("SNAKE_LOG", "snakearena.log"), "log file path (empty = stderr only)")
	flag.StringVar(&logLevel, "level", envOr("SNAKE_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.StringVar(&recordDir, "record", envOr("SNAKE_RECORD_DIR", ""), "snapshot recording directory (empty = off)")
	flag.IntVar(&recordEvery, "record-every", envInt("SNAKE_RECORD_EVERY", 20), "record every Nth snapshot per room")
	flag.StringVar(&webDir, "web", envOr("SNAKE_WEB_DIR", "web"), "static client directory")
	flag.Parse()

	log, err := server.InitLogger(logPath, logLevel)
	if err != nil {
		panic(err)
	}
	defer server.SyncLogger()
	if envErr == nil {
		log.Info("loaded .env")
	}

	cfg, err := game.LoadConfig(tuningPath)
	if err != nil {
		log.Fatalw("load tuning", "path", tuningPath, "err", err)
	}

	sessions := server.NewSessions()
	deps := game.Deps{Log: log.Named("game"), Identity: sessions}
	opts := server.HubOptions{}

	if dbPath != "" {
		db, err := store.Open(dbPath, 4096, log.Named("store"))
		if err != nil {
			log.Fatalw("open store", "path", dbPath, "err", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warnw("close store", "err", err)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		skins, err := db.SkinIDs(ctx)
		cancel()
		if err != nil {
			log.Warnw("load skin catalog", "err", err)
		}
		deps.Recorder = db
		deps.Skins = skins
		opts.Skins = db
		opts.Stats = db
		opts.Queue = db
	}

	if recordDir != "" {
		rec := record.NewRecorder(recordDir, "snapshots", recordEvery)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Warnw("close recorder", "err", err)
			}
		}()
		opts.Sink = rec
	}

	sim := game.NewSim(cfg, deps)
	hub := server.NewHub(sim, sessions, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = game.NewLoop(sim).Run(ctx)
	}()
	go func() { _ = hub.Run(ctx) }()

	mux := http.NewServeMux()
	hub.Routes(mux)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir(webDir)))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("SnakeArena listening on %s; open http://localhost%v/", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("listen", "err", err)
			stop()
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}
	<-loopDone
}
