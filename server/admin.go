package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"snakearena/game"
	"snakearena/store"
)

// StatsSource 历史战绩查询（由持久化层提供）
type StatsSource interface {
	Leaderboard(ctx context.Context, limit int) ([]store.PlayerStats, error)
	PlayerStats(ctx context.Context, key string) (store.PlayerStats, bool, error)
}

// adminConfig 可热更新的调参子集；指针为空表示不修改
type adminConfig struct {
	MaxInputsPerTick  *int     `json:"maxInputsPerTick,omitempty"`
	BotsTarget        *int     `json:"botsTarget,omitempty"`
	BaseSpeed         *float64 `json:"baseSpeed,omitempty"`
	BoostMultiplier   *float64 `json:"boostMultiplier,omitempty"`
	FoodRoomCap       *int     `json:"foodRoomCap,omitempty"`
	FoodSpawnEveryMs  *int     `json:"foodSpawnEveryMs,omitempty"`
	SpawnProtectionMs *int     `json:"spawnProtectionMs,omitempty"`
	KillCooldownMs    *int     `json:"killCooldownMs,omitempty"`
	VisionRadius      *float64 `json:"visionRadius,omitempty"`
}

func currentAdminConfig(c game.Config) adminConfig {
	ms := func(d time.Duration) *int { v := int(d / time.Millisecond); return &v }
	return adminConfig{
		MaxInputsPerTick:  &c.MaxInputsPerTick,
		BotsTarget:        &c.Bots.Target,
		BaseSpeed:         &c.Snake.BaseSpeed,
		BoostMultiplier:   &c.Snake.BoostMultiplier,
		FoodRoomCap:       &c.Food.RoomCap,
		FoodSpawnEveryMs:  ms(c.Food.SpawnEvery),
		SpawnProtectionMs: ms(c.Collide.SpawnProtection),
		KillCooldownMs:    ms(c.Collide.KillCooldown),
		VisionRadius:      &c.Bots.VisionRadius,
	}
}

// apply 在 Tick 线程执行，随后由引擎做归一化
func (a adminConfig) apply(c *game.Config) {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	if a.MaxInputsPerTick != nil {
		c.MaxInputsPerTick = *a.MaxInputsPerTick
	}
	if a.BotsTarget != nil {
		c.Bots.Target = *a.BotsTarget
	}
	if a.BaseSpeed != nil {
		c.Snake.BaseSpeed = *a.BaseSpeed
	}
	if a.BoostMultiplier != nil {
		c.Snake.BoostMultiplier = *a.BoostMultiplier
	}
	if a.FoodRoomCap != nil {
		c.Food.RoomCap = *a.FoodRoomCap
	}
	if a.FoodSpawnEveryMs != nil {
		c.Food.SpawnEvery = ms(*a.FoodSpawnEveryMs)
	}
	if a.SpawnProtectionMs != nil {
		c.Collide.SpawnProtection = ms(*a.SpawnProtectionMs)
	}
	if a.KillCooldownMs != nil {
		c.Collide.KillCooldown = ms(*a.KillCooldownMs)
	}
	if a.VisionRadius != nil {
		c.Bots.VisionRadius = *a.VisionRadius
	}
}

// HandleAdminConfig 调参的读取与热更新
// GET  /admin/config  返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段，下一 Tick 生效
func (h *Hub) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, currentAdminConfig(h.sim.CurrentConfig()))
	case http.MethodPost:
		var body adminConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if !h.submit(game.Tune{Apply: body.apply}) {
			http.Error(w, "engine busy", http.StatusServiceUnavailable)
			return
		}
		Log.Infow("config update queued", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出引擎与传输层的运行指标
// GET /metrics
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"engine":    h.sim.Metrics().Snapshot(),
		"transport": h.metrics.Snapshot(),
		"online":    h.sessions.Online(),
	}
	if h.opts.Queue != nil {
		out["store"] = h.opts.Queue.Stats()
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleLeaderboard 历史排行
// GET /stats/leaderboard?limit=10
func (h *Hub) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.opts.Stats == nil {
		http.Error(w, "stats disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	lb, err := h.opts.Stats.Leaderboard(r.Context(), limit)
	if err != nil {
		Log.Warnw("leaderboard query failed", "err", err)
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// HandlePlayerStats 单个账户战绩
// GET /stats/player?token=abc
func (h *Hub) HandlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if h.opts.Stats == nil {
		http.Error(w, "stats disabled", http.StatusNotFound)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}
	ps, ok, err := h.opts.Stats.PlayerStats(r.Context(), token)
	if err != nil {
		Log.Warnw("player stats query failed", "err", err)
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// Routes 注册全部 HTTP 接口
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWS)
	mux.HandleFunc("/admin/config", h.HandleAdminConfig)
	mux.HandleFunc("/metrics", h.HandleMetrics)
	mux.HandleFunc("/stats/leaderboard", h.HandleLeaderboard)
	mux.HandleFunc("/stats/player", h.HandlePlayerStats)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
