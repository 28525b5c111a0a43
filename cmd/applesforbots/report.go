package main

import (
	"fmt"
	"os"

	"github.com/lox/applesforbots/internal/fileutil"
	"github.com/lox/applesforbots/internal/game"
	"github.com/lox/applesforbots/internal/randutil"
	"github.com/lox/applesforbots/internal/report"
	"github.com/lox/applesforbots/internal/transcript"
)

// ReportCmd renders a text report from a saved snapshot, optionally with
// the full call transcripts appended.
type ReportCmd struct {
	Game        string `kong:"required,help='Path to a saved game snapshot'"`
	Transcripts string `kong:"help='Transcript store to append call records from'"`
	Output      string `kong:"short='o',help='Write the report to a file instead of stdout'"`
}

func (c *ReportCmd) Run() error {
	g, err := game.Load(c.Game, randutil.New(randutil.TimeSeed()))
	if err != nil {
		return err
	}

	text := report.Generate(g)
	if c.Transcripts != "" {
		store, err := transcript.Open(c.Transcripts)
		if err != nil {
			return fmt.Errorf("opening transcript store: %w", err)
		}
		defer store.Close()
		records, err := store.All()
		if err != nil {
			return err
		}
		text = report.AppendTranscripts(text, records)
	}

	if c.Output != "" {
		return fileutil.WriteFileAtomic(c.Output, []byte(text), 0o644)
	}
	_, err = fmt.Fprint(os.Stdout, text)
	return err
}
