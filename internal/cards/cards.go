// Package cards embeds the default card decks, used when the match config
// does not point at deck files of its own.
package cards

import (
	_ "embed"
	rand "math/rand/v2"

	"github.com/lox/applesforbots/internal/deck"
)

//go:embed topic_cards.txt
var topicCards string

//go:embed response_cards.txt
var responseCards string

// DefaultTopicDeck returns a shuffled deck of the embedded topic cards.
func DefaultTopicDeck(rng *rand.Rand) *deck.Deck {
	return deck.FromLines(topicCards, rng)
}

// DefaultResponseDeck returns a shuffled deck of the embedded response
// cards.
func DefaultResponseDeck(rng *rand.Rand) *deck.Deck {
	return deck.FromLines(responseCards, rng)
}
