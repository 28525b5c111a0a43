package deck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/applesforbots/internal/randutil"
)

func TestDrawPopsFromEnd(t *testing.T) {
	d := &Deck{DrawPile: []string{"a", "b", "c"}, rng: randutil.New(1)}

	card, err := d.Draw()
	require.NoError(t, err)
	assert.Equal(t, "c", card)
	assert.Equal(t, []string{"a", "b"}, d.DrawPile)
}

func TestDrawReshufflesDiscards(t *testing.T) {
	d := &Deck{DiscardPile: []string{"a", "b", "c"}, rng: randutil.New(42)}

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		card, err := d.Draw()
		require.NoError(t, err)
		seen[card] = true
	}

	assert.Len(t, seen, 3, "reshuffle must preserve every discarded card")
	assert.Empty(t, d.DiscardPile)
}

func TestDrawExhausted(t *testing.T) {
	d := &Deck{rng: randutil.New(1)}

	_, err := d.Draw()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestDiscardThenDrawConservesCards(t *testing.T) {
	d := New([]string{"a", "b", "c"}, randutil.New(7))

	card, err := d.Draw()
	require.NoError(t, err)
	d.Discard(card)

	assert.Equal(t, 3, d.Size())
}

func TestFromFileSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.txt")
	require.NoError(t, os.WriteFile(path, []byte("Queen Elizabeth\n\nTornado\n  \nParis\n"), 0o644))

	d, err := FromFile(path, randutil.New(1))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Size())
	assert.ElementsMatch(t, []string{"Queen Elizabeth", "Tornado", "Paris"}, d.DrawPile)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.txt"), randutil.New(1))
	assert.Error(t, err)
}

func TestFromLines(t *testing.T) {
	d := FromLines("one\ntwo\n\nthree", randutil.New(3))
	assert.Equal(t, 3, d.Size())
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	cards := []string{"a", "b", "c", "d", "e", "f"}
	d1 := New(cards, randutil.New(99))
	d2 := New(cards, randutil.New(99))

	assert.Equal(t, d1.DrawPile, d2.DrawPile)
}
