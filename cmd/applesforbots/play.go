package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	rand "math/rand/v2"

	"github.com/joho/godotenv"

	"github.com/lox/applesforbots/cmd/applesforbots/shared"
	"github.com/lox/applesforbots/internal/cards"
	"github.com/lox/applesforbots/internal/config"
	"github.com/lox/applesforbots/internal/deck"
	"github.com/lox/applesforbots/internal/game"
	"github.com/lox/applesforbots/internal/llm"
	"github.com/lox/applesforbots/internal/orchestrator"
	"github.com/lox/applesforbots/internal/randutil"
	"github.com/lox/applesforbots/internal/report"
	"github.com/lox/applesforbots/internal/runner"
	"github.com/lox/applesforbots/internal/transcript"
)

// PlayCmd plays one match end to end and writes the snapshot, transcript
// store, and text report into the output directory.
type PlayCmd struct {
	Config   string   `kong:"default='applesforbots.hcl',help='Match config file (HCL)'"`
	Rounds   int      `kong:"help='Number of rounds to play (overrides config)'"`
	Players  int      `kong:"help='Number of seats when the config lists no players'"`
	Models   []string `kong:"help='Per-seat model identifiers; use random for the local random agent'"`
	LoadGame string   `kong:"name='load-game',help='Resume from a saved game snapshot'"`
	SaveGame string   `kong:"name='save-game',help='Snapshot path (default games/<timestamp>/game.json)'"`
	Seed     *int64   `kong:"help='Deterministic RNG seed (optional)'"`
	Debug    bool     `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	// Credentials commonly live in a .env file; a missing file is fine.
	_ = godotenv.Load()

	logger := shared.SetupLogger(c.Debug)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Rounds > 0 {
		cfg.Match.Rounds = c.Rounds
	}
	if c.Seed != nil {
		cfg.Match.Seed = c.Seed
	}
	if len(cfg.Players) == 0 {
		cfg.Players = defaultSeats(c.Players, len(c.Models))
	}
	if len(c.Models) > 0 {
		if len(c.Models) != len(cfg.Players) {
			return fmt.Errorf("have %d models for %d players", len(c.Models), len(cfg.Players))
		}
		for i := range cfg.Players {
			cfg.Players[i].Model = c.Models[i]
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UnevenRounds() {
		logger.Warn("rounds do not divide evenly across players, judging duty will be uneven",
			"rounds", cfg.Match.Rounds,
			"players", len(cfg.Players))
	}

	var seed int64
	if cfg.Match.Seed != nil {
		seed = *cfg.Match.Seed
		logger.Info("using deterministic seed", "seed", seed)
	} else {
		seed = randutil.TimeSeed()
		logger.Info("using random seed", "seed", seed)
	}
	rng := randutil.New(seed)
	// Fallback picks happen from concurrent request goroutines, so they get
	// their own locked stream.
	fallbackRNG := randutil.NewLocked(seed + 1)

	savePath, outDir, err := c.resolvePaths()
	if err != nil {
		return err
	}

	store, err := transcript.Open(filepath.Join(outDir, "transcripts.db"))
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}
	defer store.Close()

	g, err := c.loadOrCreateGame(cfg, rng)
	if err != nil {
		return err
	}
	logger.Info("match ready",
		"players", g.PlayerCount(),
		"rounds", g.TotalRounds,
		"completed", len(g.Rounds))

	var invoker llm.Invoker
	if needsAPI(cfg.Models()) {
		llmCfg, err := llm.ConfigFromEnv()
		if err != nil {
			return err
		}
		invoker = llm.NewClient(llmCfg, logger, llm.WithRecorder(store))
	}
	orch := orchestrator.New(invoker, logger, fallbackRNG)

	run, err := runner.New(g, orch, cfg.Models(), fallbackRNG, logger, savePath,
		runner.WithView(report.NewConsoleView(os.Stdout)),
		runner.WithReporter(fileReporter{path: filepath.Join(outDir, "report.txt")}),
		runner.WithCostFn(store.TotalCost),
	)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	return run.Run(ctx)
}

// resolvePaths decides where the snapshot and its siblings live. Resuming
// saves back over the loaded snapshot unless --save-game says otherwise.
func (c *PlayCmd) resolvePaths() (savePath, outDir string, err error) {
	switch {
	case c.SaveGame != "":
		savePath = c.SaveGame
	case c.LoadGame != "":
		savePath = c.LoadGame
	default:
		savePath = filepath.Join("games", time.Now().Format("2006-01-02T15-04-05"), "game.json")
	}
	outDir = filepath.Dir(savePath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating output directory: %w", err)
	}
	return savePath, outDir, nil
}

func (c *PlayCmd) loadOrCreateGame(cfg *config.MatchConfig, rng *rand.Rand) (*game.Game, error) {
	if c.LoadGame != "" {
		g, err := game.Load(c.LoadGame, rng)
		if err != nil {
			return nil, err
		}
		if g.PlayerCount() != len(cfg.Players) {
			return nil, fmt.Errorf("snapshot has %d players, config has %d", g.PlayerCount(), len(cfg.Players))
		}
		if c.Rounds > 0 {
			g.TotalRounds = c.Rounds
		}
		return g, nil
	}

	topicDeck, err := loadDeck(cfg.Match.TopicDeck, cards.DefaultTopicDeck, rng)
	if err != nil {
		return nil, fmt.Errorf("loading topic deck: %w", err)
	}
	responseDeck, err := loadDeck(cfg.Match.ResponseDeck, cards.DefaultResponseDeck, rng)
	if err != nil {
		return nil, fmt.Errorf("loading response deck: %w", err)
	}
	return game.NewGame(cfg.Names(), topicDeck, responseDeck, cfg.Match.HandSize, cfg.Match.Rounds)
}

func loadDeck(path string, fallback func(*rand.Rand) *deck.Deck, rng *rand.Rand) (*deck.Deck, error) {
	if path == "" {
		return fallback(rng), nil
	}
	return deck.FromFile(path, rng)
}

// defaultSeats fills seats when neither config nor flags name players. All
// seats run the local random agent until --models overrides them.
func defaultSeats(players, models int) []config.PlayerConfig {
	n := players
	if n == 0 {
		n = models
	}
	if n == 0 {
		n = 3
	}
	seats := make([]config.PlayerConfig, n)
	for i := range seats {
		seats[i] = config.PlayerConfig{
			Name:  fmt.Sprintf("Player %d", i+1),
			Model: runner.ModelRandom,
		}
	}
	return seats
}

func needsAPI(models []string) bool {
	for _, m := range models {
		if m != runner.ModelRandom {
			return true
		}
	}
	return false
}

// fileReporter writes the final text report next to the snapshot.
type fileReporter struct {
	path string
}

func (r fileReporter) Report(g *game.Game) error {
	return report.WriteFile(g, r.path)
}
