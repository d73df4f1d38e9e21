package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"snakearena/game"
)

var (
	ErrClosed    = errors.New("store: closed")
	ErrQueueFull = errors.New("store: write queue full")
)

// Skin 外观目录条目；MinScore 为 0 表示默认解锁，否则最高分达到后自动解锁
type Skin struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MinScore int    `json:"minScore"`
}

// DefaultSkins 首次打开空库时写入的目录
var DefaultSkins = []Skin{
	{ID: "classic", Name: "Classic"},
	{ID: "neon", Name: "Neon"},
	{ID: "forest", Name: "Forest"},
	{ID: "tiger", Name: "Tiger", MinScore: 100},
	{ID: "lava", Name: "Lava", MinScore: 300},
	{ID: "galaxy", Name: "Galaxy", MinScore: 1000},
}

// PlayerStats 账户的累计战绩
type PlayerStats struct {
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	BestScore  int       `json:"bestScore"`
	TotalKills int       `json:"totalKills"`
	Games      int       `json:"games"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SQLite 玩家战绩与皮肤解锁的持久化；写入由后台协程串行执行，调用方不会被磁盘阻塞
type SQLite struct {
	db  *sql.DB
	log *zap.SugaredLogger

	// mu 保护 ch 的关闭：入队持读锁，Close 持写锁
	mu     sync.RWMutex
	ch     chan request
	wg     sync.WaitGroup
	once   sync.Once
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

type request struct {
	session *game.SessionResult
	barrier chan struct{}
}

// Open 打开（必要时创建）数据库并启动写协程；queue 为写队列长度
func Open(path string, queue int, log *zap.SugaredLogger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if queue <= 0 {
		queue = 1024
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}

	s := &SQLite{db: db, log: log, ch: make(chan request, queue)}
	if err := s.seedIfEmpty(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed skins: %w", err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_key TEXT NOT NULL,
			name TEXT NOT NULL,
			room TEXT NOT NULL,
			score INTEGER NOT NULL,
			kills INTEGER NOT NULL,
			cause TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_key ON sessions(player_key, ended_at);`,
		`CREATE TABLE IF NOT EXISTS players (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			best_score INTEGER NOT NULL DEFAULT 0,
			total_kills INTEGER NOT NULL DEFAULT 0,
			games INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_players_best ON players(best_score DESC);`,
		`CREATE TABLE IF NOT EXISTS skins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			min_score INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS unlocks (
			player_key TEXT NOT NULL,
			skin_id TEXT NOT NULL REFERENCES skins(id),
			unlocked_at INTEGER NOT NULL,
			PRIMARY KEY (player_key, skin_id)
		);`,
	}
	for _, st := range stmts {
		if _, err := db.Exec(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) seedIfEmpty(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM skins`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.SeedSkins(ctx, DefaultSkins)
}

// Close 等待队列中的写入完成后关闭数据库
func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSession 实现 game.SessionRecorder：只入队，不等待磁盘
func (s *SQLite) RecordSession(res game.SessionResult) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- request{session: &res}:
		return nil
	default:
		s.dropped.Add(1)
		return ErrQueueFull
	}
}

// Flush 阻塞到此前入队的写入全部落盘
func (s *SQLite) Flush(ctx context.Context) error {
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	select {
	case s.ch <- request{barrier: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats 写入队列统计
func (s *SQLite) Stats() map[string]any {
	return map[string]any{
		"queue_depth":    len(s.ch),
		"queue_capacity": cap(s.ch),
		"dropped":        s.dropped.Load(),
		"failed":         s.failed.Load(),
	}
}

func (s *SQLite) loop() {
	for r := range s.ch {
		if r.barrier != nil {
			close(r.barrier)
			continue
		}
		if err := s.writeSession(context.Background(), *r.session); err != nil {
			s.failed.Add(1)
			s.log.Warnw("write session failed", "key", r.session.Key, "err", err)
		}
	}
}

// writeSession 一局一个事务：明细、账户汇总、按最高分自动解锁
func (s *SQLite) writeSession(ctx context.Context, res game.SessionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions(player_key,name,room,score,kills,cause,started_at,ended_at) VALUES(?,?,?,?,?,?,?,?)`,
		res.Key, res.Name, string(res.Room), res.Score, res.Kills, res.Cause.String(),
		res.StartedAt.UnixMilli(), res.EndedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	// 匿名玩家只留明细，不计入账户
	if res.Key != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO players(key,name,best_score,total_kills,games,updated_at) VALUES(?,?,?,?,1,?)
			ON CONFLICT(key) DO UPDATE SET
				name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE players.name END,
				best_score = MAX(players.best_score, excluded.best_score),
				total_kills = players.total_kills + excluded.total_kills,
				games = players.games + 1,
				updated_at = excluded.updated_at`,
			res.Key, res.Name, res.Score, res.Kills, res.EndedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("upsert player: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO unlocks(player_key,skin_id,unlocked_at)
			SELECT ?, s.id, ? FROM skins s, players p
			WHERE p.key = ? AND s.min_score > 0 AND s.min_score <= p.best_score`,
			res.Key, res.EndedAt.UnixMilli(), res.Key,
		); err != nil {
			return fmt.Errorf("unlock skins: %w", err)
		}
	}
	return tx.Commit()
}

// PlayerStats 查询账户战绩；不存在时 ok=false
func (s *SQLite) PlayerStats(ctx context.Context, key string) (PlayerStats, bool, error) {
	var ps PlayerStats
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT key,name,best_score,total_kills,games,updated_at FROM players WHERE key = ?`, key,
	).Scan(&ps.Key, &ps.Name, &ps.BestScore, &ps.TotalKills, &ps.Games, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return PlayerStats{}, false, nil
	}
	if err != nil {
		return PlayerStats{}, false, fmt.Errorf("player stats: %w", err)
	}
	ps.UpdatedAt = time.UnixMilli(updated).UTC()
	return ps, true, nil
}

// Leaderboard 历史最高分排行，同分按累计击杀、再按 key
func (s *SQLite) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key,name,best_score,total_kills,games,updated_at FROM players
		ORDER BY best_score DESC, total_kills DESC, key ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()
	out := []PlayerStats{}
	for rows.Next() {
		var ps PlayerStats
		var updated int64
		if err := rows.Scan(&ps.Key, &ps.Name, &ps.BestScore, &ps.TotalKills, &ps.Games, &updated); err != nil {
			return nil, err
		}
		ps.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, ps)
	}
	return out, rows.Err()
}

// Skins 完整目录，按解锁分数排序
func (s *SQLite) Skins(ctx context.Context) ([]Skin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,min_score FROM skins ORDER BY min_score, id`)
	if err != nil {
		return nil, fmt.Errorf("skins: %w", err)
	}
	defer rows.Close()
	var out []Skin
	for rows.Next() {
		var sk Skin
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.MinScore); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// Unlocked 玩家可用的皮肤：默认皮肤加上已解锁的
func (s *SQLite) Unlocked(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM skins WHERE min_score = 0
		UNION
		SELECT skin_id FROM unlocks WHERE player_key = ?
		ORDER BY 1`, key)
	if err != nil {
		return nil, fmt.Errorf("unlocked skins: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IsUnlocked 单个皮肤是否可用；未知皮肤返回 false
func (s *SQLite) IsUnlocked(ctx context.Context, key, skin string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM skins s
		WHERE s.id = ? AND (s.min_score = 0 OR EXISTS (
			SELECT 1 FROM unlocks u WHERE u.player_key = ? AND u.skin_id = s.id))`,
		skin, key,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is unlocked: %w", err)
	}
	return n > 0, nil
}

// SeedSkins 写入或更新目录条目
func (s *SQLite) SeedSkins(ctx context.Context, skins []Skin) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, sk := range skins {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO skins(id,name,min_score) VALUES(?,?,?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, min_score = excluded.min_score`,
			sk.ID, sk.Name, sk.MinScore,
		); err != nil {
			return fmt.Errorf("seed skin %s: %w", sk.ID, err)
		}
	}
	return tx.Commit()
}

// Unlock 手动解锁（例如运营发放）
func (s *SQLite) Unlock(ctx context.Context, key, skin string) error {
	if key == "" {
		return fmt.Errorf("unlock %s: empty player key", skin)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO unlocks(player_key,skin_id,unlocked_at) VALUES(?,?,?)`,
		key, skin, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("unlock %s: %w", skin, err)
	}
	return nil
}

// SkinIDs 目录中全部皮肤 id，供机器人随机挑选
func (s *SQLite) SkinIDs(ctx context.Context) ([]string, error) {
	skins, err := s.Skins(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(skins))
	for _, sk := range skins {
		ids = append(ids, sk.ID)
	}
	return ids, nil
}
