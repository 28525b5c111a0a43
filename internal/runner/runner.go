// Package runner sequences a match: it starts rounds, gathers all player
// moves concurrently, has the judge decide, and persists a snapshot exactly
// once when the run ends for any reason.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/applesforbots/internal/game"
	"github.com/lox/applesforbots/internal/orchestrator"
	"github.com/lox/applesforbots/internal/prompt"
	"github.com/lox/applesforbots/internal/randutil"
)

// ModelRandom is the agent identifier for a local random agent; it never
// touches the invocation boundary.
const ModelRandom = "random"

// Reporter consumes the final game state after the snapshot is persisted.
// It gets read-only access; the runner never calls it mid-match.
type Reporter interface {
	Report(g *game.Game) error
}

// Runner drives one match to completion.
type Runner struct {
	game     *game.Game
	orch     *orchestrator.Orchestrator
	models   []string
	rng      *randutil.Locked
	logger   *log.Logger
	savePath string
	view     View
	reporter Reporter
	costFn   func() (float64, error)
}

// View receives round-by-round progress. report.ConsoleView implements it.
type View interface {
	RoundStarted(g *game.Game, r *game.Round)
	MovePlayed(g *game.Game, playerIdx int, move *game.Move)
	RoundDecided(g *game.Game, r *game.Round)
	MatchFinished(g *game.Game)
}

// Option configures a Runner.
type Option func(*Runner)

// WithView attaches a progress view.
func WithView(v View) Option {
	return func(r *Runner) { r.view = v }
}

// WithReporter attaches a report consumer invoked after the final save.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithCostFn attaches a callback that totals the run's API cost for the
// snapshot's stats block.
func WithCostFn(fn func() (float64, error)) Option {
	return func(r *Runner) { r.costFn = fn }
}

// New creates a runner. models holds one agent identifier per player index;
// ModelRandom selects the local random agent.
func New(g *game.Game, orch *orchestrator.Orchestrator, models []string, rng *randutil.Locked, logger *log.Logger, savePath string, opts ...Option) (*Runner, error) {
	if len(models) != g.PlayerCount() {
		return nil, fmt.Errorf("have %d models for %d players", len(models), g.PlayerCount())
	}

	r := &Runner{
		game:     g,
		orch:     orch,
		models:   models,
		rng:      rng,
		logger:   logger.WithPrefix("runner"),
		savePath: savePath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run plays rounds until the configured total is reached, the decks run
// out, or ctx is cancelled. Interruption is not an error: the incomplete
// trailing round is discarded and the last fully-closed state is saved.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		if finishErr := r.finish(); finishErr != nil && err == nil {
			err = finishErr
		}
	}()

	for len(r.game.Rounds) < r.game.TotalRounds {
		if ctx.Err() != nil {
			r.logger.Info("run interrupted, saving progress")
			return nil
		}

		if err := r.playRound(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Info("run interrupted, saving progress")
				return nil
			}
			return err
		}
	}

	if r.view != nil {
		r.view.MatchFinished(r.game)
	}
	return nil
}

func (r *Runner) playRound(ctx context.Context) error {
	round, err := r.game.StartRound()
	if err != nil {
		return err
	}
	r.logger.Info("round started",
		"round", round.RoundNumber,
		"topic", round.TopicCard,
		"judge", round.Judge)
	if r.view != nil {
		r.view.RoundStarted(r.game, round)
	}

	// All non-judge requests run concurrently; nothing mutates game state
	// until every result has been joined back here.
	results := make([]*orchestrator.Result, r.game.PlayerCount())
	eg, egctx := errgroup.WithContext(ctx)
	for idx := 0; idx < r.game.PlayerCount(); idx++ {
		if idx == round.Judge {
			continue
		}
		eg.Go(func() error {
			res, err := r.requestMove(egctx, idx)
			if err != nil {
				return err
			}
			results[idx] = &res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	// Applied serially by the driver; the decks are never touched from the
	// request goroutines.
	for idx, res := range results {
		if res == nil {
			continue
		}
		if err := r.game.PlayCard(idx, res.Card, res.Reasoning, res.TranscriptID); err != nil {
			return fmt.Errorf("applying move for player %d: %w", idx, err)
		}
		if r.view != nil {
			r.view.MovePlayed(r.game, idx, round.Moves[idx])
		}
	}

	decision, err := r.requestDecision(ctx, round)
	if err != nil {
		return err
	}
	if err := r.game.JudgeRound(decision.Card, decision.Reasoning, decision.TranscriptID); err != nil {
		return fmt.Errorf("applying judge decision: %w", err)
	}
	r.logger.Info("round decided",
		"round", round.RoundNumber,
		"winner", round.Decision.WinningPlayer,
		"card", round.Decision.WinningCard)
	if r.view != nil {
		r.view.RoundDecided(r.game, round)
	}
	return nil
}

// requestMove obtains one validated move for playerIdx. Game state is only
// read here, never written; writes happen after the join in playRound.
func (r *Runner) requestMove(ctx context.Context, playerIdx int) (orchestrator.Result, error) {
	hand := append([]string(nil), r.game.Players[playerIdx].Hand...)
	model := r.models[playerIdx]

	if model == ModelRandom {
		return orchestrator.Result{
			Card:      hand[r.rng.IntN(len(hand))],
			Reasoning: "Random selection",
		}, nil
	}

	return r.orch.RequestChoice(ctx, model, prompt.ForPlayer(r.game, playerIdx), hand, orchestrator.RolePlayer)
}

// requestDecision obtains the judge's pick among the cards played this
// round.
func (r *Runner) requestDecision(ctx context.Context, round *game.Round) (orchestrator.Result, error) {
	played := round.PlayedCards()
	model := r.models[round.Judge]

	if model == ModelRandom {
		return orchestrator.Result{
			Card:      played[r.rng.IntN(len(played))],
			Reasoning: "Random selection",
		}, nil
	}

	return r.orch.RequestChoice(ctx, model, prompt.ForJudge(r.game), played, orchestrator.RoleJudge)
}

// finish persists the snapshot exactly once and hands the final state to
// the reporter. A trailing undecided round is discarded first so the saved
// match never contains one.
func (r *Runner) finish() error {
	if r.game.DiscardOpenRound() {
		r.logger.Warn("discarded incomplete trailing round")
	}
	r.game.Stats.FinishedAt = time.Now().UTC()
	if r.costFn != nil {
		if cost, err := r.costFn(); err == nil {
			r.game.Stats.APICost = cost
		} else {
			r.logger.Error("failed to total API cost", "error", err)
		}
	}

	if err := r.game.Save(r.savePath); err != nil {
		return err
	}
	r.logger.Info("game state saved", "path", r.savePath)

	if r.reporter != nil {
		return r.reporter.Report(r.game)
	}
	return nil
}
