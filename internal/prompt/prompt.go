// Package prompt builds the conversations sent to LLM agents. The move
// orchestrator treats these as opaque payloads; the only policy enforced
// here is visibility: a player's private reasoning never appears in another
// agent's conversation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lox/applesforbots/internal/game"
	"github.com/lox/applesforbots/internal/llm"
)

const responseFormat = `Respond with a single JSON object of the form ` +
	`{"reasoning": "why you chose it", "card": "your chosen card"} and no other text.`

// ForPlayer builds the conversation asking playerIdx to play a card in the
// open round.
func ForPlayer(g *game.Game, playerIdx int) *llm.Conversation {
	r := g.Rounds[*g.CurrentRound]
	player := g.Players[playerIdx]

	conv := llm.NewConversation()
	conv.AddSystem(fmt.Sprintf(
		"You are %s, playing a card game of word association with %d other players. "+
			"Each round has a topic card (an adjective or theme) and a rotating judge. "+
			"Every other player plays one card from their hand; the judge picks the card "+
			"that best matches the topic, and its owner wins the round.",
		player.Name, g.PlayerCount()-1))

	var b strings.Builder
	fmt.Fprintf(&b, "Round %d. The topic card is: %s\n\n", r.RoundNumber+1, r.TopicCard)
	fmt.Fprintf(&b, "Your hand:\n")
	for _, card := range player.Hand {
		fmt.Fprintf(&b, "- %s\n", card)
	}
	b.WriteString("\nChoose the card from your hand that best matches the topic. ")
	b.WriteString(responseFormat)
	conv.AddUser(b.String())
	return conv
}

// ForJudge builds the conversation asking the judge to pick the winning
// card among those played this round. Only the card text is shown, never
// the players' reasoning or identities.
func ForJudge(g *game.Game) *llm.Conversation {
	r := g.Rounds[*g.CurrentRound]

	conv := llm.NewConversation()
	conv.AddSystem(fmt.Sprintf(
		"You are %s, judging a round of a word-association card game. "+
			"The other players have each played one card; pick the card that best "+
			"matches the topic card.",
		g.Players[r.Judge].Name))

	var b strings.Builder
	fmt.Fprintf(&b, "Round %d. The topic card is: %s\n\n", r.RoundNumber+1, r.TopicCard)
	b.WriteString("The cards played this round:\n")
	for _, card := range r.PlayedCards() {
		fmt.Fprintf(&b, "- %s\n", card)
	}
	b.WriteString("\nChoose the winning card. ")
	b.WriteString(responseFormat)
	conv.AddUser(b.String())
	return conv
}
