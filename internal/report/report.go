// Package report is a read-only consumer of final game state: a plain-text
// match report plus the styled per-round console output shown while a match
// runs.
package report

import (
	"fmt"
	"strings"

	"github.com/lox/applesforbots/internal/fileutil"
	"github.com/lox/applesforbots/internal/game"
	"github.com/lox/applesforbots/internal/transcript"
)

// Generate renders a human-readable report of the whole match.
func Generate(g *game.Game) string {
	var b strings.Builder

	b.WriteString("=== GAME REPORT ===\n")
	fmt.Fprintf(&b, "\nPlayers (%d):\n", g.PlayerCount())
	for idx := 0; idx < g.PlayerCount(); idx++ {
		p := g.Players[idx]
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, winCount(len(p.WonRounds)))
	}

	fmt.Fprintf(&b, "\nTotal Rounds: %d\n", len(g.Rounds))
	for _, r := range g.Rounds {
		fmt.Fprintf(&b, "\n=== Round %d ===\n", r.RoundNumber+1)
		fmt.Fprintf(&b, "Topic Card: %s\n", r.TopicCard)
		fmt.Fprintf(&b, "Judge: %s\n", g.Players[r.Judge].Name)

		b.WriteString("\nMoves:\n")
		for _, idx := range r.Movers() {
			move := r.Moves[idx]
			fmt.Fprintf(&b, "\n%s:\n", g.Players[idx].Name)
			fmt.Fprintf(&b, "  Played: %s\n", move.PlayedCard)
			fmt.Fprintf(&b, "  Reasoning: %s\n", move.Reasoning)
		}

		if r.Decision != nil {
			fmt.Fprintf(&b, "\nWinner: %s\n", g.Players[r.Decision.WinningPlayer].Name)
			fmt.Fprintf(&b, "Winning Card: %s\n", r.Decision.WinningCard)
			fmt.Fprintf(&b, "Judge's Reasoning: %s\n", r.Decision.Reasoning)
		}
	}

	b.WriteString("\n=== Final Standings ===\n")
	for _, idx := range g.Standings() {
		p := g.Players[idx]
		fmt.Fprintf(&b, "%s: %s\n", p.Name, winCount(len(p.WonRounds)))
	}

	if g.Stats.APICost > 0 {
		fmt.Fprintf(&b, "\nTotal API cost: $%.4f\n", g.Stats.APICost)
	}

	return b.String()
}

// WriteFile renders the report and writes it atomically.
func WriteFile(g *game.Game, path string) error {
	return fileutil.WriteFileAtomic(path, []byte(Generate(g)), 0o644)
}

// AppendTranscripts renders the recorded model calls for an audit trail at
// the end of a report.
func AppendTranscripts(report string, records []transcript.Record) string {
	if len(records) == 0 {
		return report
	}

	var b strings.Builder
	b.WriteString(report)
	fmt.Fprintf(&b, "\n=== Model Calls (%d) ===\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&b, "\n[%s] %s (%d+%d tokens, $%.4f, %dms)\n",
			rec.ID, rec.Model, rec.PromptTokens, rec.CompletionTokens, rec.Cost, rec.DurationMS)
		if rec.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", rec.Error)
		}
	}
	return b.String()
}

func winCount(n int) string {
	if n == 1 {
		return "1 win"
	}
	return fmt.Sprintf("%d wins", n)
}
