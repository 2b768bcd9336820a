// Package broadcast implements the fixed-cadence server tick that drives
// video compositing and fans out the result (and SERVER_STATE updates) to
// every connected client (spec §4.8).
package broadcast

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/zfogg/ascii-chat/bufferpool"
	"github.com/zfogg/ascii-chat/clientmanager"
	"github.com/zfogg/ascii-chat/compositor"
	"github.com/zfogg/ascii-chat/metrics"
	"github.com/zfogg/ascii-chat/wire"
)

// Config configures the broadcast loop's cadence and composite geometry.
type Config struct {
	TargetFPS int // 15-30 per spec §4.8
	CanvasW   int
	CanvasH   int
	Palette   []byte
	Color     bool
	Compress  bool

	// Pool, when set, backs each tick's composite canvas buffer (spec
	// §3.2/§4.2). Metrics, when set, is updated with the pool's running
	// stats and the per-tick composite duration (spec §3.6/§9).
	Pool    *bufferpool.Pool
	Metrics *metrics.Metrics
}

// Loop runs the fixed-cadence broadcast: one composite per tick, with no
// catch-up stacking if a tick runs long (spec §4.8 "if a tick runs long,
// the next tick fires immediately").
type Loop struct {
	cfg     Config
	clients *clientmanager.Manager
	log     zerolog.Logger

	lastClientCount int
	senderID        uint32

	lastPoolHits   int64
	lastPoolAllocs int64
}

// New builds a broadcast loop over clients, using senderID (typically 0)
// as the server's own sender identity on outbound packets.
func New(cfg Config, clients *clientmanager.Manager, senderID uint32, log zerolog.Logger) *Loop {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 20
	}
	return &Loop{cfg: cfg, clients: clients, senderID: senderID, log: log, lastClientCount: -1}
}

// Run blocks, ticking at cfg.TargetFPS until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	interval := time.Second / time.Duration(l.cfg.TargetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	snapshot := l.clients.Snapshot()

	if len(snapshot) != l.lastClientCount {
		l.lastClientCount = len(snapshot)
		l.broadcastServerState(snapshot)
	}

	var sources []compositor.Source
	for _, c := range snapshot {
		if !c.HasVideo() {
			continue
		}
		frameBytes, ok := c.InboundVideo.Latest()
		if !ok {
			continue
		}
		imgFrame, err := wire.DecodeImageFrame(frameBytes)
		if err != nil {
			continue
		}
		sources = append(sources, compositor.Source{
			ClientID: c.ID,
			Frame:    compositor.RGBImage{Width: int(imgFrame.Width), Height: int(imgFrame.Height), Pixels: imgFrame.RGB},
		})
	}
	if len(sources) == 0 {
		return
	}

	start := time.Now()
	frame, err := compositor.Composite(sources, compositor.Options{
		CanvasW: l.cfg.CanvasW, CanvasH: l.cfg.CanvasH, Palette: l.cfg.Palette, Color: l.cfg.Color, Compress: l.cfg.Compress,
		Pool: l.cfg.Pool,
	})
	l.recordMetrics(time.Since(start))
	if err != nil {
		l.log.Warn().Err(err).Msg("composite failed")
		return
	}

	packet := wire.NewPacket(wire.TypeAsciiFrame, l.senderID, frame.Encode())
	for _, c := range snapshot {
		if !c.HasVideo() {
			continue
		}
		if !c.OutboundVideo.Push(packet) {
			c.FramesDropped.Add(1)
		}
	}
}

// recordMetrics publishes the pool's cumulative counters as deltas (they
// are running totals, not per-tick values) and the tick's wall time, when
// l.cfg.Metrics is wired.
func (l *Loop) recordMetrics(tickDuration time.Duration) {
	if l.cfg.Metrics == nil {
		return
	}
	l.cfg.Metrics.BroadcastTickDuration.Observe(tickDuration.Seconds())
	if l.cfg.Pool == nil {
		return
	}
	stats := l.cfg.Pool.Stats()
	l.cfg.Metrics.BufferPoolBytesInUse.Set(float64(stats.BytesInUse))
	if d := stats.Hits - l.lastPoolHits; d > 0 {
		l.cfg.Metrics.BufferPoolHits.Add(float64(d))
		l.lastPoolHits = stats.Hits
	}
	if d := stats.NewAllocs - l.lastPoolAllocs; d > 0 {
		l.cfg.Metrics.BufferPoolNewAllocs.Add(float64(d))
		l.lastPoolAllocs = stats.NewAllocs
	}
}

func (l *Loop) broadcastServerState(snapshot []*clientmanager.Info) {
	active := 0
	for _, c := range snapshot {
		if c.HasVideo() || c.HasAudio() {
			active++
		}
	}
	payload := make([]byte, 8)
	putUint32(payload[0:4], uint32(len(snapshot)))
	putUint32(payload[4:8], uint32(active))
	packet := wire.NewPacket(wire.TypeServerState, l.senderID, payload)
	for _, c := range snapshot {
		c.OutboundVideo.Push(packet)
	}
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
