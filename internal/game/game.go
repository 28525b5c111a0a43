// Package game holds the authoritative record of a match and enforces every
// legality invariant: turn order, hand size, judge rotation and scoring.
// All mutation goes through StartRound, PlayCard and JudgeRound; everything
// else is read-only.
package game

import (
	"slices"
	"time"

	"github.com/lox/applesforbots/internal/deck"
)

// SchemaVersion identifies the snapshot format written by Save.
const SchemaVersion = "1.0"

// Move records a single player's play in a round.
type Move struct {
	PlayedCard string `json:"played_card"`
	// Reasoning stays private for the whole match; it surfaces only in the
	// snapshot and the final report, never in another agent's conversation.
	Reasoning    string `json:"reasoning"`
	DrawnCard    string `json:"drawn_card"`
	TranscriptID string `json:"transcript_id,omitempty"`
}

// Decision records the judge's pick for a round.
type Decision struct {
	WinningCard   string `json:"winning_card"`
	WinningPlayer int    `json:"winning_player"`
	Reasoning     string `json:"reasoning"`
	TranscriptID  string `json:"transcript_id,omitempty"`
}

// Round is a single round of the match. A round is open while Decision is
// nil and immutable once closed.
type Round struct {
	RoundNumber int           `json:"round_number"`
	TopicCard   string        `json:"topic_card"`
	Judge       int           `json:"judge"`
	Moves       map[int]*Move `json:"moves"`
	Decision    *Decision     `json:"decision,omitempty"`
}

// Open reports whether the round is still awaiting a judge decision.
func (r *Round) Open() bool {
	return r.Decision == nil
}

// Movers returns the player indices that have moved, ascending.
func (r *Round) Movers() []int {
	idxs := make([]int, 0, len(r.Moves))
	for idx := range r.Moves {
		idxs = append(idxs, idx)
	}
	slices.Sort(idxs)
	return idxs
}

// PlayedCards returns the cards played this round in ascending player-index
// order. This is the judge's legal set.
func (r *Round) PlayedCards() []string {
	cards := make([]string, 0, len(r.Moves))
	for _, idx := range r.Movers() {
		cards = append(cards, r.Moves[idx].PlayedCard)
	}
	return cards
}

// Player is owned exclusively by Game and mutated only through PlayCard and
// JudgeRound.
type Player struct {
	Name      string   `json:"name"`
	Hand      []string `json:"hand"`
	WonRounds []int    `json:"won_rounds"`
}

// RunStats carries bookkeeping about the run itself.
type RunStats struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	APICost    float64   `json:"api_cost"`
}

// Game is the full match state.
type Game struct {
	SchemaVersion string          `json:"schema_version"`
	Players       map[int]*Player `json:"players"`
	Rounds        []*Round        `json:"rounds"`
	CurrentRound  *int            `json:"current_round,omitempty"`
	TotalRounds   int             `json:"total_rounds"`
	TopicDeck     *deck.Deck      `json:"topic_deck"`
	ResponseDeck  *deck.Deck      `json:"response_deck"`
	Stats         RunStats        `json:"stats"`
}

// NewGame deals handSize response cards to each named player and returns a
// fresh match targeting totalRounds rounds.
func NewGame(names []string, topicDeck, responseDeck *deck.Deck, handSize, totalRounds int) (*Game, error) {
	players := make(map[int]*Player, len(names))
	for i, name := range names {
		hand := make([]string, 0, handSize)
		for len(hand) < handSize {
			card, err := responseDeck.Draw()
			if err != nil {
				return nil, ErrResponseDeckExhausted
			}
			hand = append(hand, card)
		}
		players[i] = &Player{Name: name, Hand: hand}
	}

	return &Game{
		SchemaVersion: SchemaVersion,
		Players:       players,
		TotalRounds:   totalRounds,
		TopicDeck:     topicDeck,
		ResponseDeck:  responseDeck,
		Stats:         RunStats{StartedAt: time.Now().UTC()},
	}, nil
}

// PlayerCount returns the number of seats in the match.
func (g *Game) PlayerCount() int {
	return len(g.Players)
}

// openRound returns the current round if one is open, nil otherwise.
func (g *Game) openRound() *Round {
	if g.CurrentRound == nil {
		return nil
	}
	r := g.Rounds[*g.CurrentRound]
	if !r.Open() {
		return nil
	}
	return r
}

// StartRound draws a topic card, assigns the judge by fixed rotation
// (round number mod player count) and appends a new open round.
func (g *Game) StartRound() (*Round, error) {
	if g.openRound() != nil {
		return nil, invalidMove("round %d is still open", *g.CurrentRound)
	}

	topic, err := g.TopicDeck.Draw()
	if err != nil {
		return nil, ErrTopicDeckExhausted
	}

	num := len(g.Rounds)
	r := &Round{
		RoundNumber: num,
		TopicCard:   topic,
		Judge:       num % len(g.Players),
		Moves:       make(map[int]*Move),
	}
	g.Rounds = append(g.Rounds, r)
	g.CurrentRound = &r.RoundNumber
	return r, nil
}

// PlayCard plays card for the given player in the open round. The
// replacement is drawn before the hand is touched, so a response-deck
// exhaustion leaves the player's hand unmodified.
func (g *Game) PlayCard(playerIdx int, card, reasoning, transcriptID string) error {
	r := g.openRound()
	if r == nil {
		return invalidMove("no active round")
	}
	if playerIdx == r.Judge {
		return invalidMove("player %d is the judge this round", playerIdx)
	}
	if _, moved := r.Moves[playerIdx]; moved {
		return invalidMove("player %d has already played this round", playerIdx)
	}
	player, ok := g.Players[playerIdx]
	if !ok {
		return invalidMove("no player with index %d", playerIdx)
	}
	handIdx := slices.Index(player.Hand, card)
	if handIdx < 0 {
		return invalidMove("card %q is not in player %d's hand", card, playerIdx)
	}

	drawn, err := g.ResponseDeck.Draw()
	if err != nil {
		return ErrResponseDeckExhausted
	}

	player.Hand = slices.Delete(player.Hand, handIdx, handIdx+1)
	player.Hand = append(player.Hand, drawn)
	g.ResponseDeck.Discard(card)

	r.Moves[playerIdx] = &Move{
		PlayedCard:   card,
		Reasoning:    reasoning,
		DrawnCard:    drawn,
		TranscriptID: transcriptID,
	}
	return nil
}

// JudgeRound closes the open round by picking winningCard. Every non-judge
// player must have moved; the winner is the lowest player index whose move
// matches winningCard.
func (g *Game) JudgeRound(winningCard, reasoning, transcriptID string) error {
	r := g.openRound()
	if r == nil {
		return invalidMove("no active round")
	}

	var missing []int
	for idx := range len(g.Players) {
		if idx == r.Judge {
			continue
		}
		if _, moved := r.Moves[idx]; !moved {
			missing = append(missing, idx)
		}
	}
	if len(missing) > 0 {
		return &InvalidMoveError{Reason: "not all players have moved", MissingPlayers: missing}
	}

	winner := -1
	for _, idx := range r.Movers() {
		if r.Moves[idx].PlayedCard == winningCard {
			winner = idx
			break
		}
	}
	if winner < 0 {
		return invalidMove("winning card %q was not played this round", winningCard)
	}

	r.Decision = &Decision{
		WinningCard:   winningCard,
		WinningPlayer: winner,
		Reasoning:     reasoning,
		TranscriptID:  transcriptID,
	}
	g.Players[winner].WonRounds = append(g.Players[winner].WonRounds, r.RoundNumber)
	return nil
}

// DiscardOpenRound drops a trailing undecided round, so a saved match never
// contains an open round. Returns true if a round was removed.
func (g *Game) DiscardOpenRound() bool {
	if g.openRound() == nil {
		return false
	}
	g.Rounds = g.Rounds[:len(g.Rounds)-1]
	if len(g.Rounds) > 0 {
		idx := len(g.Rounds) - 1
		g.CurrentRound = &idx
	} else {
		g.CurrentRound = nil
	}
	return true
}

// Standings returns player indices ordered by win count descending, ties
// broken by player index.
func (g *Game) Standings() []int {
	idxs := make([]int, 0, len(g.Players))
	for idx := range g.Players {
		idxs = append(idxs, idx)
	}
	slices.SortFunc(idxs, func(a, b int) int {
		if d := len(g.Players[b].WonRounds) - len(g.Players[a].WonRounds); d != 0 {
			return d
		}
		return a - b
	})
	return idxs
}
