package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/applesforbots/internal/randutil"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := testGame(t, 3, 4, 2)

	r, err := g.StartRound()
	require.NoError(t, err)
	playRound(t, g, r)
	require.NoError(t, g.JudgeRound(r.PlayedCards()[1], "sharp", "tr-9"))

	// Leave a second round mid-flight to exercise CurrentRound and open
	// round state.
	_, err = g.StartRound()
	require.NoError(t, err)
	require.NoError(t, g.PlayCard(0, g.Players[0].Hand[0], "fast", "tr-10"))

	path := filepath.Join(t.TempDir(), "game_state.json")
	require.NoError(t, g.Save(path))

	loaded, err := Load(path, randutil.New(5))
	require.NoError(t, err)

	assert.Equal(t, g.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, g.TotalRounds, loaded.TotalRounds)
	assert.Equal(t, g.Players, loaded.Players)
	assert.Equal(t, g.Rounds, loaded.Rounds)
	require.NotNil(t, loaded.CurrentRound)
	assert.Equal(t, *g.CurrentRound, *loaded.CurrentRound)
	assert.Equal(t, g.TopicDeck.DrawPile, loaded.TopicDeck.DrawPile)
	assert.Equal(t, g.TopicDeck.DiscardPile, loaded.TopicDeck.DiscardPile)
	assert.Equal(t, g.ResponseDeck.DrawPile, loaded.ResponseDeck.DrawPile)
	assert.Equal(t, g.ResponseDeck.DiscardPile, loaded.ResponseDeck.DiscardPile)
}

func TestLoadedGameIsPlayable(t *testing.T) {
	g := testGame(t, 3, 4, 2)
	r, err := g.StartRound()
	require.NoError(t, err)
	playRound(t, g, r)
	require.NoError(t, g.JudgeRound(r.PlayedCards()[0], "ok", ""))

	path := filepath.Join(t.TempDir(), "game_state.json")
	require.NoError(t, g.Save(path))

	loaded, err := Load(path, randutil.New(11))
	require.NoError(t, err)

	r2, err := loaded.StartRound()
	require.NoError(t, err)
	assert.Equal(t, 1, r2.RoundNumber)
	assert.Equal(t, 1, r2.Judge)
	for idx := range loaded.Players {
		if idx == r2.Judge {
			continue
		}
		require.NoError(t, loaded.PlayCard(idx, loaded.Players[idx].Hand[0], "resumed", ""))
	}
	require.NoError(t, loaded.JudgeRound(r2.PlayedCards()[0], "done", ""))
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":"0.9"}`), 0o644))

	_, err := Load(path, randutil.New(1))
	assert.ErrorContains(t, err, "schema version")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), randutil.New(1))
	assert.Error(t, err)
}
