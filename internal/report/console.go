package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/applesforbots/internal/game"
)

// Styles for the live console view.
var (
	roundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	topicStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	moveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	finalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)
)

// ConsoleView prints styled round-by-round progress. It is write-only and
// holds no game state.
type ConsoleView struct {
	w io.Writer
}

// NewConsoleView creates a view writing to w.
func NewConsoleView(w io.Writer) *ConsoleView {
	return &ConsoleView{w: w}
}

// RoundStarted announces a round, its topic card and judge.
func (v *ConsoleView) RoundStarted(g *game.Game, r *game.Round) {
	fmt.Fprintln(v.w)
	fmt.Fprintln(v.w, roundStyle.Render(fmt.Sprintf("=== Round %d ===", r.RoundNumber+1)))
	fmt.Fprintln(v.w, topicStyle.Render("Topic card: "+r.TopicCard))
	fmt.Fprintln(v.w, topicStyle.Render(fmt.Sprintf("Judge: %s (Player %d)", g.Players[r.Judge].Name, r.Judge)))
}

// MovePlayed announces one player's play.
func (v *ConsoleView) MovePlayed(g *game.Game, playerIdx int, move *game.Move) {
	fmt.Fprintln(v.w, moveStyle.Render(fmt.Sprintf("%s plays: %s", g.Players[playerIdx].Name, move.PlayedCard)))
}

// RoundDecided announces the judge's decision.
func (v *ConsoleView) RoundDecided(g *game.Game, r *game.Round) {
	d := r.Decision
	fmt.Fprintln(v.w, winnerStyle.Render(fmt.Sprintf("%s wins with %q", g.Players[d.WinningPlayer].Name, d.WinningCard)))
	if d.Reasoning != "" {
		fmt.Fprintln(v.w, winnerStyle.Render("Reasoning: "+firstLine(d.Reasoning)))
	}
}

// MatchFinished prints the final standings.
func (v *ConsoleView) MatchFinished(g *game.Game) {
	fmt.Fprintln(v.w)
	fmt.Fprintln(v.w, finalStyle.Render("Match complete! Final scores:"))
	for _, idx := range g.Standings() {
		p := g.Players[idx]
		fmt.Fprintln(v.w, finalStyle.Render(fmt.Sprintf("%s: %s", p.Name, winCount(len(p.WonRounds)))))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
