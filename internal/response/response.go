// Package response parses and validates untrusted agent output. Raw model
// text is turned into a typed (reasoning, card) pair checked against the
// legal-card set, or a named failure. Untyped data never crosses this
// boundary.
package response

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFiles embed.FS

var moveSchema = mustCompileSchema("schemas/move.json")

func mustCompileSchema(name string) *jsonschema.Schema {
	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("reading embedded schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := "https://applesforbots.dev/" + name
	if err := compiler.AddResource(url, strings.NewReader(string(data))); err != nil {
		panic(fmt.Sprintf("adding schema %s: %v", name, err))
	}
	return compiler.MustCompile(url)
}

// MalformedResponseError reports output that could not be parsed as the
// required {"reasoning": ..., "card": ...} object.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

// IllegalChoiceError reports a parseable response that named a card outside
// the legal set.
type IllegalChoiceError struct {
	Choice string
	Legal  []string
}

func (e *IllegalChoiceError) Error() string {
	return fmt.Sprintf("chose card %q which is not one of: %s", e.Choice, strings.Join(e.Legal, ", "))
}

// Parse turns a raw agent reply into (reasoning, card). The returned card is
// the original spelling from the legal set, not the agent's spelling.
func Parse(raw string, legal []string) (reasoning, card string, err error) {
	content := stripFences(strings.TrimSpace(raw))

	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return "", "", &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}
	if err := moveSchema.Validate(value); err != nil {
		return "", "", &MalformedResponseError{Reason: err.Error(), Raw: raw}
	}

	obj := value.(map[string]any)
	reasoning = strings.TrimSpace(obj["reasoning"].(string))
	choice := strings.TrimSpace(obj["card"].(string))

	want := Normalize(choice)
	for _, legalCard := range legal {
		if Normalize(legalCard) == want {
			return reasoning, legalCard, nil
		}
	}
	return "", "", &IllegalChoiceError{Choice: choice, Legal: legal}
}

// Normalize lowercases a card name and strips every non-letter rune, so
// "Queen Elizabeth." and "QUEEN ELIZABETH" compare equal.
func Normalize(card string) string {
	var b strings.Builder
	for _, r := range card {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// stripFences removes surrounding markdown code-fence markers, keeping the
// body between the first and last line.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
