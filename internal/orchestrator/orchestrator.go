// Package orchestrator obtains one validated card choice from an unreliable
// agent. Each request gets a bounded number of attempts; invalid output
// earns a corrective instruction and another try, and exhaustion falls back
// to a uniformly random legal choice so a match always makes progress.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/applesforbots/internal/llm"
	"github.com/lox/applesforbots/internal/randutil"
	"github.com/lox/applesforbots/internal/response"
)

// Role identifies what kind of choice is being requested. The judge gets a
// larger attempt budget since a bad decision costs the whole round.
type Role string

const (
	RolePlayer Role = "player"
	RoleJudge  Role = "judge"
)

// FallbackMarker is the literal prefix of a fallback rationale; reports and
// operators grep for it.
const FallbackMarker = "Random selection"

const (
	defaultPlayerAttempts = 3
	defaultJudgeAttempts  = 5
)

// Result is one validated (or fallen-back) choice.
type Result struct {
	Card      string
	Reasoning string

	// TranscriptID is the provenance handle of the attempt that produced
	// the card - or, for a fallback, of the last failed attempt, so
	// operators can inspect why the fallback occurred.
	TranscriptID string

	// Fallback is true when the card was chosen at random after the agent
	// exhausted its attempts.
	Fallback bool
}

// Orchestrator drives the retry-then-fallback loop for a single match. Its
// random source is safe for use from concurrent per-player requests.
type Orchestrator struct {
	invoker        llm.Invoker
	logger         *log.Logger
	rng            *randutil.Locked
	playerAttempts int
	judgeAttempts  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAttempts overrides the per-role attempt budgets.
func WithAttempts(player, judge int) Option {
	return func(o *Orchestrator) {
		o.playerAttempts = player
		o.judgeAttempts = judge
	}
}

// New creates an orchestrator using invoker for agent calls and rng for
// fallback choices.
func New(invoker llm.Invoker, logger *log.Logger, rng *randutil.Locked, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		invoker:        invoker,
		logger:         logger.WithPrefix("orchestrator"),
		rng:            rng,
		playerAttempts: defaultPlayerAttempts,
		judgeAttempts:  defaultJudgeAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) attemptsFor(role Role) int {
	if role == RoleJudge {
		return o.judgeAttempts
	}
	return o.playerAttempts
}

// RequestChoice asks the agent behind model to choose one card from legal,
// appending corrective instructions to conv between failed attempts. The
// only error it returns is context cancellation; agent misbehavior is
// absorbed by the fallback.
func (o *Orchestrator) RequestChoice(ctx context.Context, model string, conv *llm.Conversation, legal []string, role Role) (Result, error) {
	if len(legal) == 0 {
		return Result{}, fmt.Errorf("no legal cards to choose from")
	}

	maxAttempts := o.attemptsFor(role)
	logger := o.logger.With("model", model, "role", string(role))

	var lastRaw, lastTranscript string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		resp, err := o.invoker.Invoke(ctx, model, conv)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			// Transport already retried internally; this attempt is spent.
			logger.Warn("agent invocation failed", "attempt", attempt, "error", err)
			continue
		}
		lastRaw = resp.Content
		lastTranscript = resp.TranscriptID

		reasoning, card, err := response.Parse(resp.Content, legal)
		if err == nil {
			return Result{Card: card, Reasoning: reasoning, TranscriptID: resp.TranscriptID}, nil
		}

		logger.Warn("agent response rejected", "attempt", attempt, "error", err)
		conv.AddAssistant(resp.Content)
		conv.AddUser(correctiveMessage(err, legal))
	}

	card := legal[o.rng.IntN(len(legal))]
	logger.Warn("falling back to random choice", "attempts", maxAttempts, "card", card)
	return Result{
		Card: card,
		Reasoning: fmt.Sprintf("%s (agent failed after %d attempts)\nLast raw response: %s",
			FallbackMarker, maxAttempts, lastRaw),
		TranscriptID: lastTranscript,
		Fallback:     true,
	}, nil
}

// correctiveMessage restates the required format and the legal set after a
// rejected reply.
func correctiveMessage(cause error, legal []string) string {
	return fmt.Sprintf(
		"Your previous response was not accepted: %v.\n"+
			"Reply with a single JSON object of the form "+
			`{"reasoning": "why you chose it", "card": "your chosen card"}. `+
			"The card must be exactly one of: %s. Do not include any other text.",
		cause, strings.Join(legal, ", "))
}
