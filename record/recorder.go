package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"snakearena/game"
)

// Frame 录像中的一行
type Frame struct {
	Room     game.RoomID   `json:"room"`
	Tick     uint64        `json:"tick"`
	At       int64         `json:"at"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// Recorder 按小时滚动的 zstd 压缩 JSONL 快照录像；每个房间只记录每第 every 个快照
type Recorder struct {
	baseDir string
	prefix  string
	every   uint64
	now     func() time.Time

	mu      sync.Mutex
	seen    map[game.RoomID]uint64
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewRecorder(baseDir, prefix string, every int) *Recorder {
	if every <= 0 {
		every = 1
	}
	if prefix == "" {
		prefix = "snapshots"
	}
	return &Recorder{
		baseDir: baseDir,
		prefix:  prefix,
		every:   uint64(every),
		now:     time.Now,
		seen:    make(map[game.RoomID]uint64),
	}
}

// Record 实现 server.SnapshotSink
func (r *Recorder) Record(msg game.SnapshotMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.seen[msg.Room]
	r.seen[msg.Room] = n + 1
	if n%r.every != 0 {
		return nil
	}
	return r.writeLocked(Frame{
		Room:     msg.Room,
		Tick:     msg.Snapshot.Tick,
		At:       msg.Snapshot.At,
		Snapshot: msg.Snapshot,
	})
}

// Forget 房间销毁后丢弃其采样计数
func (r *Recorder) Forget(room game.RoomID) {
	r.mu.Lock()
	delete(r.seen, room)
	r.mu.Unlock()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) writeLocked(v any) error {
	hour := r.now().UTC().Format("2006-01-02-15")
	if hour != r.curHour {
		if err := r.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *Recorder) rotateLocked(hour string) error {
	if err := r.closeLocked(); err != nil {
		return err
	}
	path := r.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.enc = enc
	r.w = bufio.NewWriterSize(enc, 64*1024)
	r.curHour = hour
	return nil
}

func (r *Recorder) closeLocked() error {
	var err error
	if r.w != nil {
		_ = r.w.Flush()
	}
	if r.enc != nil {
		err = r.enc.Close()
		r.enc = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.w = nil
	r.curHour = ""
	return err
}

func (r *Recorder) pathForHour(hour string) string {
	return filepath.Join(r.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", r.prefix, hour))
}
