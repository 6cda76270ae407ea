// Package discovery finds recent game ids by crawling the public
// Battlesnake leaderboards and each listed player's stats page.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "greedysnek-replay/1.0 (engine-evaluation)"

// Config holds discovery worker configuration
type Config struct {
	LeaderboardURLs []string      // Leaderboard pages to crawl
	RequestDelay    time.Duration // Pause between player pages
	MaxPlayers      int           // Players checked per leaderboard (0 = unlimited)
}

func DefaultConfig() Config {
	return Config{
		LeaderboardURLs: []string{
			"https://play.battlesnake.com/leaderboard/standard",
			"https://play.battlesnake.com/leaderboard/standard-duels",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   100,
	}
}

// Worker discovers game ids, skipping any it has already reported or was
// seeded with.
type Worker struct {
	config   Config
	client   *http.Client
	log      *slog.Logger
	knownIDs map[string]bool
	knownMu  sync.RWMutex
	gameIDRe *regexp.Regexp
	playerRe *regexp.Regexp
	arenaRe  *regexp.Regexp
}

func NewWorker(config Config, existingIDs map[string]bool, logger *slog.Logger) *Worker {
	if existingIDs == nil {
		existingIDs = make(map[string]bool)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		config:   config,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger.With("component", "discovery"),
		knownIDs: existingIDs,
		gameIDRe: regexp.MustCompile(`/game/([a-f0-9-]+)`),
		// /leaderboard/{arena}/{username}/stats
		playerRe: regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`),
		arenaRe:  regexp.MustCompile(`/leaderboard/([^/]+)/?$`),
	}
}

// Discover crawls every configured leaderboard and sends each new game id on
// out. A failing page is logged and skipped; only ctx cancellation stops the
// crawl early.
func (w *Worker) Discover(ctx context.Context, out chan<- string) error {
	total := 0
	for _, leaderboardURL := range w.config.LeaderboardURLs {
		players, arena, err := w.leaderboardPlayers(ctx, leaderboardURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("leaderboard failed", "url", leaderboardURL, "err", err)
			continue
		}
		if w.config.MaxPlayers > 0 && len(players) > w.config.MaxPlayers {
			players = players[:w.config.MaxPlayers]
		}
		w.log.Info("leaderboard players", "arena", arena, "players", len(players))

		fresh := 0
		for i, player := range players {
			gameIDs, err := w.playerGames(ctx, player.statsURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Warn("player games failed", "arena", arena, "player", player.username, "err", err)
				continue
			}
			w.log.Debug("player checked", "arena", arena, "n", i+1, "of", len(players), "player", player.username, "games", len(gameIDs))

			for _, gameID := range gameIDs {
				if !w.claim(gameID) {
					continue
				}
				select {
				case out <- gameID:
					fresh++
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			if w.config.RequestDelay > 0 {
				select {
				case <-time.After(w.config.RequestDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		w.log.Info("leaderboard done", "arena", arena, "new_games", fresh)
		total += fresh
	}
	w.log.Info("discovery complete", "new_games", total)
	return nil
}

// claim marks gameID known and reports whether it was new.
func (w *Worker) claim(gameID string) bool {
	w.knownMu.Lock()
	defer w.knownMu.Unlock()
	if w.knownIDs[gameID] {
		return false
	}
	w.knownIDs[gameID] = true
	return true
}

// AddKnownID adds a game ID to the known set (used for deduplication)
func (w *Worker) AddKnownID(gameID string) {
	w.knownMu.Lock()
	defer w.knownMu.Unlock()
	w.knownIDs[gameID] = true
}

type playerInfo struct {
	username string
	statsURL string
}

func (w *Worker) leaderboardPlayers(ctx context.Context, leaderboardURL string) ([]playerInfo, string, error) {
	base, err := url.Parse(leaderboardURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse leaderboard url: %w", err)
	}
	doc, err := w.fetch(ctx, leaderboardURL)
	if err != nil {
		return nil, "", err
	}

	arena := "unknown"
	if m := w.arenaRe.FindStringSubmatch(base.Path); len(m) >= 2 {
		arena = m[1]
	}

	var players []playerInfo
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := w.playerRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		seen[m[1]] = true
		players = append(players, playerInfo{username: m[1], statsURL: base.ResolveReference(ref).String()})
	})
	return players, arena, nil
}

func (w *Worker) playerGames(ctx context.Context, statsURL string) ([]string, error) {
	doc, err := w.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}

	var gameIDs []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if m := w.gameIDRe.FindStringSubmatch(href); len(m) >= 2 && !seen[m[1]] {
			seen[m[1]] = true
			gameIDs = append(gameIDs, m[1])
		}
	})
	return gameIDs, nil
}

func (w *Worker) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status code: %d", pageURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}
