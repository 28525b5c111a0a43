// Package config parses match configuration from HCL files. Command-line
// flags override anything set here.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// MatchConfig is the full configuration for one match.
type MatchConfig struct {
	Match   MatchSettings  `hcl:"match,block"`
	Players []PlayerConfig `hcl:"player,block"`
}

// MatchSettings contains match-level configuration.
type MatchSettings struct {
	Rounds       int    `hcl:"rounds,optional"`
	HandSize     int    `hcl:"hand_size,optional"`
	Seed         *int64 `hcl:"seed,optional"`
	TopicDeck    string `hcl:"topic_deck,optional"`
	ResponseDeck string `hcl:"response_deck,optional"`
}

// PlayerConfig defines one seat: a display name and the agent identifier
// driving it ("random" selects the local random agent).
type PlayerConfig struct {
	Name  string `hcl:"name,label"`
	Model string `hcl:"model"`
}

// Default returns the configuration used when no file is given.
func Default() *MatchConfig {
	return &MatchConfig{
		Match: MatchSettings{
			Rounds:   6,
			HandSize: 7,
		},
	}
}

// Load reads match configuration from an HCL file. A missing file yields
// the defaults.
func Load(filename string) (*MatchConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing config file: %s", diags.Error())
	}

	var cfg MatchConfig
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding config file: %s", diags.Error())
	}

	if cfg.Match.Rounds == 0 {
		cfg.Match.Rounds = 6
	}
	if cfg.Match.HandSize == 0 {
		cfg.Match.HandSize = 7
	}
	return &cfg, nil
}

// Validate checks the configuration is playable.
func (c *MatchConfig) Validate() error {
	if len(c.Players) < 2 {
		return fmt.Errorf("at least 2 players are required, have %d", len(c.Players))
	}
	if c.Match.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, have %d", c.Match.Rounds)
	}
	if c.Match.HandSize < 1 {
		return fmt.Errorf("hand size must be positive, have %d", c.Match.HandSize)
	}
	for _, p := range c.Players {
		if p.Model == "" {
			return fmt.Errorf("player %q has no model", p.Name)
		}
	}
	return nil
}

// UnevenRounds reports whether seats get unequal scoring opportunities,
// which happens when the round count is not divisible by the player count.
func (c *MatchConfig) UnevenRounds() bool {
	return len(c.Players) > 0 && c.Match.Rounds%len(c.Players) != 0
}

// Names returns the player display names in seat order.
func (c *MatchConfig) Names() []string {
	names := make([]string, len(c.Players))
	for i, p := range c.Players {
		names[i] = p.Name
	}
	return names
}

// Models returns the per-seat agent identifiers in seat order.
func (c *MatchConfig) Models() []string {
	models := make([]string, len(c.Players))
	for i, p := range c.Players {
		models[i] = p.Model
	}
	return models
}
