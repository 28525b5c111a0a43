// Package deck implements the two card pools used by a match: an ordered
// draw pile and a discard pile that is reshuffled back in when the draw
// pile runs dry.
package deck

import (
	"bufio"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"os"
	"strings"
)

// ErrExhausted is returned by Draw when both piles are empty.
var ErrExhausted = errors.New("deck exhausted")

// Deck represents a deck of cards with draw and discard piles. The piles are
// exported so a deck can be snapshotted and restored losslessly; callers
// other than the serializer must go through Draw and Discard.
type Deck struct {
	DrawPile    []string `json:"draw_pile"`
	DiscardPile []string `json:"discard_pile"`

	rng *rand.Rand
}

// New creates a deck from the given cards, shuffled with rng.
func New(cards []string, rng *rand.Rand) *Deck {
	d := &Deck{
		DrawPile: append([]string(nil), cards...),
		rng:      rng,
	}
	d.shuffle(d.DrawPile)
	return d
}

// FromFile loads a deck from a flat text file, one card per line. Blank
// lines are ignored.
func FromFile(path string, rng *rand.Rand) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening deck file: %w", err)
	}
	defer f.Close()

	var cards []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cards = append(cards, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading deck file %s: %w", path, err)
	}
	return New(cards, rng), nil
}

// FromLines builds a deck from in-memory card text, one card per line.
// Used for the embedded default decks.
func FromLines(text string, rng *rand.Rand) *Deck {
	var cards []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cards = append(cards, line)
	}
	return New(cards, rng)
}

// SetRand attaches an RNG to a deck restored from a snapshot.
func (d *Deck) SetRand(rng *rand.Rand) {
	d.rng = rng
}

// Draw removes and returns the top card of the draw pile. When the draw
// pile is empty the discard pile is reshuffled into it first. Returns
// ErrExhausted when both piles are empty.
func (d *Deck) Draw() (string, error) {
	if len(d.DrawPile) == 0 && len(d.DiscardPile) == 0 {
		return "", ErrExhausted
	}

	if len(d.DrawPile) == 0 {
		d.DrawPile = d.DiscardPile
		d.DiscardPile = nil
		d.shuffle(d.DrawPile)
	}

	card := d.DrawPile[len(d.DrawPile)-1]
	d.DrawPile = d.DrawPile[:len(d.DrawPile)-1]
	return card, nil
}

// Discard adds a card to the discard pile. The deck does not verify the
// card was drawn from it; that is the caller's responsibility.
func (d *Deck) Discard(card string) {
	d.DiscardPile = append(d.DiscardPile, card)
}

// Remaining returns the number of cards still drawable without reshuffling.
func (d *Deck) Remaining() int {
	return len(d.DrawPile)
}

// Size returns the total number of cards across both piles.
func (d *Deck) Size() int {
	return len(d.DrawPile) + len(d.DiscardPile)
}

func (d *Deck) shuffle(cards []string) {
	d.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
