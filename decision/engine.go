package decision

import (
	"context"
	"log/slog"
)

// Engine is Decide with logging attached. It holds no per-game state, so one
// Engine can serve any number of concurrent games as long as each call gets
// its own Rand.
type Engine struct {
	log *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger}
}

// Move decides for s. The attrs are appended to every log line, typically
// the game id and turn.
func (e *Engine) Move(ctx context.Context, s Snapshot, rng Rand, attrs ...any) Decision {
	d := Decide(s, rng)

	log := e.log
	if len(attrs) > 0 {
		log = log.With(attrs...)
	}
	if d.Anomalies != 0 {
		log.WarnContext(ctx, "unexpected snake shape",
			"snake", s.You.Id,
			"body_len", len(s.You.Body),
			"anomalies", d.Anomalies.Names(),
		)
	}
	if log.Enabled(ctx, slog.LevelDebug) {
		head, _ := s.You.Head()
		log.DebugContext(ctx, "move decided",
			"snake", s.You.Id,
			"head_x", head.X,
			"head_y", head.Y,
			"safe", d.Safe.String(),
			"food", d.Food.String(),
			"preferred", d.Preferred.String(),
			"reason", d.Reason.String(),
			"move", d.Move.String(),
		)
	}
	return d
}
