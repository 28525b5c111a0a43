package game

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"os"

	"github.com/lox/applesforbots/internal/fileutil"
)

// Save writes a versioned snapshot of the full match state. The write is
// atomic so a crash mid-save never corrupts an existing snapshot.
func (g *Game) Save(path string) error {
	g.SchemaVersion = SchemaVersion
	if err := fileutil.WriteJSONAtomic(path, g, 0o644); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	return nil
}

// Load restores a match from a snapshot written by Save. The decks come
// back with their exact pile contents; rng is attached for any reshuffles
// that follow.
func Load(path string, rng *rand.Rand) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading game: %w", err)
	}

	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decoding game snapshot %s: %w", path, err)
	}
	if g.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema version %q (want %q)", g.SchemaVersion, SchemaVersion)
	}

	g.TopicDeck.SetRand(rng)
	g.ResponseDeck.SetRand(rng)
	return &g, nil
}
