// Package downloader streams a finished game's frames from the Battlesnake
// engine's websocket event feed.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Config holds downloader configuration
type Config struct {
	EngineURL      string // WebSocket URL template with one %s for the game id
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// ErrNoFrames is returned when the feed closed before sending any frame.
var ErrNoFrames = errors.New("downloader: no frames received")

// GameEvent represents an event from the WebSocket stream
type GameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GameInfo from the "game_info" event
type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
}

type RulesetInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings json.RawMessage `json:"settings"`
}

// Game is everything downloaded for one game id.
type Game struct {
	ID      string
	Info    GameInfo
	Frames  []FrameData
	Winner  string
	Partial bool // the stream ended without game_end
}

// DownloadGame connects to the game's event feed and reads frames until
// game_end, a normal close, or ctx is done. A feed that breaks after some
// frames were read returns what it has with Partial set.
func DownloadGame(ctx context.Context, gameID string, cfg Config) (Game, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("game_id", gameID)

	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf(cfg.EngineURL, gameID), nil)
	if err != nil {
		return Game{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	g := Game{ID: gameID}
	ended := false

read:
	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Game{}, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			if len(g.Frames) > 0 {
				logger.Warn("feed broke mid-game", "frames", len(g.Frames), "err", err)
				break
			}
			return Game{}, fmt.Errorf("read error: %w", err)
		}

		var event GameEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logger.Warn("failed to parse event", "err", err)
			continue
		}

		switch event.Type {
		case "game_info":
			if err := json.Unmarshal(event.Data, &g.Info); err != nil {
				logger.Warn("failed to parse game_info", "err", err)
			}
		case "frame":
			var frame FrameData
			if err := json.Unmarshal(event.Data, &frame); err != nil {
				logger.Warn("failed to parse frame", "err", err)
				continue
			}
			g.Frames = append(g.Frames, frame)
		case "game_end":
			ended = true
			break read
		}
	}

	if len(g.Frames) == 0 {
		return Game{}, ErrNoFrames
	}
	g.Partial = !ended
	for i := range g.Frames {
		if g.Frames[i].Board.Width == 0 {
			g.Frames[i].Board.Width = g.Info.Game.Width
		}
		if g.Frames[i].Board.Height == 0 {
			g.Frames[i].Board.Height = g.Info.Game.Height
		}
	}
	g.Winner = determineWinner(&g.Frames[len(g.Frames)-1])
	return g, nil
}

// determineWinner names the only snake alive in the final frame, or "draw".
func determineWinner(frame *FrameData) string {
	if frame == nil {
		return "unknown"
	}
	var alive []SnakeData
	for _, snake := range frame.Snakes {
		if snake.Alive() {
			alive = append(alive, snake)
		}
	}
	if len(alive) == 1 {
		return alive[0].Name
	}
	// None alive, or several still going at a turn limit.
	return "draw"
}
