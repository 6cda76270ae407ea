package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// GameUpdate is sent by a worker each time it finishes a game.
type GameUpdate struct {
	WorkerID int
	GameID   string
	Winner   string
	Turns    int
	Rows     int
	Reasons  map[string]int
}

type counters interface {
	Moves() int64
	Games() int64
}

type model struct {
	gamesPlayed int
	totalRows   int
	moves       int64
	reasons     map[string]int
	wins        map[string]int
	draws       int
	startTime   time.Time
	recentGames []string
	updates     <-chan GameUpdate
	stats       counters
	now         func() time.Time
}

func initialModel(updates <-chan GameUpdate, stats counters) model {
	return model{
		reasons:   make(map[string]int),
		wins:      make(map[string]int),
		startTime: time.Now(),
		updates:   updates,
		stats:     stats,
		now:       time.Now,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// doneMsg is delivered when the update channel closes.
type doneMsg struct{}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates <-chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return u
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		if m.stats != nil {
			m.moves = m.stats.Moves()
		}
		return m, tickCmd()
	case doneMsg:
		return m, tea.Quit
	case GameUpdate:
		m = m.record(msg)
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) record(u GameUpdate) model {
	m.gamesPlayed++
	m.totalRows += u.Rows
	for r, n := range u.Reasons {
		m.reasons[r] += n
	}
	winner := u.Winner
	if winner == "" {
		m.draws++
		winner = "draw"
	} else {
		m.wins[u.Winner]++
	}
	line := fmt.Sprintf("Worker %d: %s winner=%s turns=%d rows=%d", u.WorkerID, shortID(u.GameID), winner, u.Turns, u.Rows)
	m.recentGames = append([]string{line}, m.recentGames...)
	if len(m.recentGames) > 10 {
		m.recentGames = m.recentGames[:10]
	}
	return m
}

func (m model) View() string {
	duration := m.now().Sub(m.startTime)
	gamesPerSec, movesPerSec := 0.0, 0.0
	if duration.Seconds() >= 1 {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
		movesPerSec = float64(m.moves) / duration.Seconds()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Games Played:   %d\n", m.gamesPlayed)
	fmt.Fprintf(&b, "Archive Rows:   %d\n", m.totalRows)
	fmt.Fprintf(&b, "Total Moves:    %d\n", m.moves)
	fmt.Fprintf(&b, "Duration:       %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec:      %.2f\n", gamesPerSec)
	fmt.Fprintf(&b, "Moves/Sec:      %.2f\n\n", movesPerSec)

	decisions := 0
	for _, n := range m.reasons {
		decisions += n
	}
	b.WriteString("Decisions:\n")
	for _, r := range []string{"food", "safe", "trapped"} {
		pct := 0.0
		if decisions > 0 {
			pct = 100 * float64(m.reasons[r]) / float64(decisions)
		}
		fmt.Fprintf(&b, "  %-8s %8d (%5.1f%%)\n", r, m.reasons[r], pct)
	}

	b.WriteString("\nWins by seat:\n")
	seats := make([]string, 0, len(m.wins))
	for id := range m.wins {
		seats = append(seats, id)
	}
	sort.Strings(seats)
	for _, id := range seats {
		fmt.Fprintf(&b, "  %-8s %d\n", id, m.wins[id])
	}
	fmt.Fprintf(&b, "  %-8s %d\n", "draw", m.draws)

	b.WriteString("\nRecent Games:\n")
	for _, g := range m.recentGames {
		b.WriteString(g + "\n")
	}

	b.WriteString("\nPress q to quit.\n")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
