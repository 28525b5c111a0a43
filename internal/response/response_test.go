package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var legal = []string{"Queen Elizabeth", "Hot Air Balloon", "Paris"}

func TestParseValidResponse(t *testing.T) {
	reasoning, card, err := Parse(`{"reasoning": "regal and dignified", "card": "Queen Elizabeth"}`, legal)
	require.NoError(t, err)
	assert.Equal(t, "regal and dignified", reasoning)
	assert.Equal(t, "Queen Elizabeth", card)
}

func TestParseReturnsLegalSetSpelling(t *testing.T) {
	tests := []struct {
		name   string
		choice string
	}{
		{"trailing punctuation", "Queen Elizabeth."},
		{"all caps", "QUEEN ELIZABETH"},
		{"lowercase", "queen elizabeth"},
		{"no spaces", "queenelizabeth"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, card, err := Parse(`{"reasoning": "r", "card": "`+test.choice+`"}`, legal)
			require.NoError(t, err)
			assert.Equal(t, "Queen Elizabeth", card)
		})
	}
}

func TestParseStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"reasoning\": \"fits the theme\", \"card\": \"Paris\"}\n```"
	reasoning, card, err := Parse(raw, legal)
	require.NoError(t, err)
	assert.Equal(t, "fits the theme", reasoning)
	assert.Equal(t, "Paris", card)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I pick Paris because it is romantic"},
		{"bare string", `"Paris"`},
		{"array", `[{"reasoning": "r", "card": "Paris"}]`},
		{"missing card", `{"reasoning": "r"}`},
		{"missing reasoning", `{"card": "Paris"}`},
		{"wrong types", `{"reasoning": 1, "card": 2}`},
		{"empty", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := Parse(test.raw, legal)
			var malformed *MalformedResponseError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestParseIllegalChoice(t *testing.T) {
	_, _, err := Parse(`{"reasoning": "r", "card": "London"}`, legal)

	var illegal *IllegalChoiceError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, "London", illegal.Choice)
	assert.Equal(t, legal, illegal.Legal)
	assert.Contains(t, err.Error(), "London")
	assert.Contains(t, err.Error(), "Queen Elizabeth")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Normalize("Queen Elizabeth."), Normalize("QUEEN ELIZABETH"))
	assert.Equal(t, Normalize("queen elizabeth"), Normalize("Queen Elizabeth."))
	assert.Equal(t, "hotairballoon", Normalize("Hot-Air Balloon!"))
	assert.NotEqual(t, Normalize("Paris"), Normalize("London"))
}
