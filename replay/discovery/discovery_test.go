package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/leaderboard/standard", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			http.Error(w, "no agent", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `<html><body><table>
			<tr><td><a href="/leaderboard/standard/alice/stats">alice</a></td></tr>
			<tr><td><a href="/leaderboard/standard/alice/stats">alice again</a></td></tr>
			<tr><td><a href="/leaderboard/standard/bob/stats">bob</a></td></tr>
			<tr><td><a href="/leaderboard/standard/carol/stats">carol</a></td></tr>
			<tr><td><a href="/leaderboard/duels">other board</a></td></tr>
		</table></body></html>`)
	})
	mux.HandleFunc("/leaderboard/standard/alice/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/game/aaa-111">g</a><a href="/game/bbb-222">g</a><a href="/game/aaa-111">dup</a>`)
	})
	mux.HandleFunc("/leaderboard/standard/bob/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="https://play.example/game/bbb-222">g</a><a href="/game/ccc-333">g</a><a href="/profile/bob">p</a>`)
	})
	mux.HandleFunc("/leaderboard/standard/carol/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func collect(t *testing.T, w *Worker) []string {
	t.Helper()
	out := make(chan string, 16)
	if err := w.Discover(context.Background(), out); err != nil {
		t.Fatalf("discover: %v", err)
	}
	close(out)
	var ids []string
	for id := range out {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func TestDiscover_DedupesAcrossPlayers(t *testing.T) {
	ts := testServer(t)
	cfg := Config{LeaderboardURLs: []string{ts.URL + "/leaderboard/standard", ts.URL + "/leaderboard/missing"}}
	w := NewWorker(cfg, map[string]bool{"ccc-333": true}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := strings.Join(collect(t, w), ",")
	if got != "aaa-111,bbb-222" {
		t.Fatalf("ids=%s", got)
	}

	// A second crawl finds nothing new.
	if again := collect(t, w); len(again) != 0 {
		t.Fatalf("second crawl ids=%v", again)
	}
}

func TestDiscover_MaxPlayers(t *testing.T) {
	ts := testServer(t)
	cfg := Config{LeaderboardURLs: []string{ts.URL + "/leaderboard/standard"}, MaxPlayers: 1}
	w := NewWorker(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := strings.Join(collect(t, w), ","); got != "aaa-111,bbb-222" {
		t.Fatalf("ids=%s", got)
	}
	w.AddKnownID("zzz")
	if w.claim("zzz") {
		t.Fatalf("AddKnownID did not register id")
	}
}

func TestDiscover_Cancelled(t *testing.T) {
	ts := testServer(t)
	cfg := Config{LeaderboardURLs: []string{ts.URL + "/leaderboard/standard"}}
	w := NewWorker(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Discover(ctx, make(chan string)); err != context.Canceled {
		t.Fatalf("err=%v", err)
	}
}
