package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/store"
)

type captureRecorder struct {
	mu   sync.Mutex
	rows []store.DecisionRow
}

func (c *captureRecorder) Record(row store.DecisionRow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
	return true
}

func newTestServer(t *testing.T, opts ...ServerOption) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]ServerOption{WithSeed(func() int64 { return 1 })}, opts...)
	s := NewServer(decision.NewEngine(logger), InfoResponse{APIVersion: "1", Author: "test", Version: version}, logger, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, &logs
}

func snake(id string, body ...Coord) Battlesnake {
	return Battlesnake{ID: id, Name: id, Health: 90, Body: body, Head: body[0], Length: len(body)}
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	resp, err := http.Post(url, "application/json", r)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeMove(t *testing.T, resp *http.Response) string {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var mr MoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		t.Fatalf("decode move: %v", err)
	}
	return mr.Move
}

func TestIndex(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var info InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.APIVersion != "1" || info.Author != "test" {
		t.Fatalf("info=%+v", info)
	}

	missing, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", missing.StatusCode)
	}
}

func TestMove_PrefersSafeFood(t *testing.T) {
	rec := &captureRecorder{}
	ts, _ := newTestServer(t, WithRecorder(rec))

	// Neck below the head, food above: up is the only safe food move.
	me := snake("me", Coord{5, 5}, Coord{5, 4}, Coord{5, 3})
	req := GameRequest{
		Game: Game{ID: "g1"},
		Turn: 7,
		Board: Board{
			Width: 11, Height: 11,
			Food:   []Coord{{5, 6}, {0, 0}},
			Snakes: []Battlesnake{me, snake("them", Coord{4, 5}, Coord{3, 5})},
		},
		You: me,
	}
	if got := decodeMove(t, post(t, ts.URL+"/move", req)); got != "up" {
		t.Fatalf("move=%q want up", got)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.rows) != 1 {
		t.Fatalf("recorded %d rows", len(rec.rows))
	}
	row := rec.rows[0]
	if row.GameID != "g1" || row.Turn != 7 || row.Reason != "food" || row.Move != "up" {
		t.Fatalf("row=%+v", row)
	}
	if strings.Join(row.Safe, ",") != "up,right" || row.Opponents != 1 || row.HeadX != 5 || row.Length != 3 {
		t.Fatalf("row=%+v", row)
	}
}

func TestMove_YouMissingFromBoard(t *testing.T) {
	ts, _ := newTestServer(t)

	// Cornered at (0,0) with the neck to the right: only up survives.
	me := snake("me", Coord{0, 0}, Coord{1, 0})
	req := GameRequest{
		Game:  Game{ID: "g2"},
		Board: Board{Width: 3, Height: 3},
		You:   me,
	}
	if got := decodeMove(t, post(t, ts.URL+"/move", req)); got != "up" {
		t.Fatalf("move=%q want up", got)
	}
}

func TestMove_TrappedStillAnswers(t *testing.T) {
	ts, logs := newTestServer(t)

	me := snake("me", Coord{0, 0}, Coord{0, 1}, Coord{1, 1}, Coord{1, 0})
	req := GameRequest{Game: Game{ID: "g3"}, Board: Board{Width: 2, Height: 2, Snakes: []Battlesnake{me}}, You: me}
	got := decodeMove(t, post(t, ts.URL+"/move", req))
	switch got {
	case "up", "down", "left", "right":
	default:
		t.Fatalf("move=%q", got)
	}
	if !strings.Contains(logs.String(), `"reason":"trapped"`) {
		t.Fatalf("expected trapped debug line, logs:\n%s", logs.String())
	}
}

func TestBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/start", "/move", "/end"} {
		resp := post(t, ts.URL+path, "{not json")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s malformed status=%d", path, resp.StatusCode)
		}

		get, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		get.Body.Close()
		if get.StatusCode != http.StatusMethodNotAllowed || get.Header.Get("Allow") != http.MethodPost {
			t.Fatalf("%s GET status=%d allow=%q", path, get.StatusCode, get.Header.Get("Allow"))
		}
	}
}

func TestStartAndEnd(t *testing.T) {
	ts, logs := newTestServer(t)

	me := snake("me", Coord{1, 1})
	other := snake("other", Coord{3, 3})

	cases := []struct {
		name   string
		snakes []Battlesnake
		want   string
	}{
		{"won", []Battlesnake{me}, "won"},
		{"lost", []Battlesnake{other}, "lost"},
		{"draw", nil, "draw"},
	}
	if resp := post(t, ts.URL+"/start", GameRequest{Game: Game{ID: "s"}, You: me}); resp.StatusCode != http.StatusOK {
		t.Fatalf("start status=%d", resp.StatusCode)
	}
	for _, tc := range cases {
		logs.Reset()
		req := GameRequest{Game: Game{ID: tc.name}, Board: Board{Snakes: tc.snakes}, You: me}
		if resp := post(t, ts.URL+"/end", req); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status=%d", tc.name, resp.StatusCode)
		}
		if !strings.Contains(logs.String(), `"result":"`+tc.want+`"`) {
			t.Fatalf("%s: logs=%s", tc.name, logs.String())
		}
	}
}
