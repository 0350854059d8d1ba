package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/transcript-reader/internal/bootstrap"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()
	var (
		trace      = flag.Bool("trace", false, "print how each fragment was read")
		curriculum = flag.String("curriculum", cfg.Parse.CurriculumFile, "curriculum YAML/JSON file")
		validate   = flag.Bool("validate", true, "validate the record against the output schema")
	)
	flag.Parse()
	cfg.Parse.CurriculumFile = *curriculum

	logger := bootstrap.NewLogger(os.Stderr, "text", cfg.Log.Level)
	slog.SetDefault(logger)

	parser, err := bootstrap.NewParser(cfg.Parse, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	// stdin is either a JSON array of fragments or {"fragments": [...]}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		printError("Error: reading stdin: %v\n", err)
		os.Exit(1)
	}
	frags, err := decodeFragments(raw)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	var (
		rec   transcript.TranscriptRecord
		steps []transcript.TraceStep
	)
	if *trace {
		rec, steps = parser.Trace(frags)
	} else {
		rec = parser.Parse(frags)
	}
	if *validate {
		if err := transcript.ValidateRecord(rec); err != nil {
			printError("Error: output failed schema validation: %v\n", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if *trace {
		err = enc.Encode(struct {
			Record transcript.TranscriptRecord `json:"record"`
			Trace  []transcript.TraceStep      `json:"trace"`
		}{rec, steps})
	} else {
		err = enc.Encode(rec)
	}
	if err != nil {
		printError("Error: encode: %v\n", err)
		os.Exit(1)
	}
}

func decodeFragments(raw []byte) ([]transcript.Fragment, error) {
	var list []transcript.Fragment
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Fragments []transcript.Fragment `json:"fragments"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("stdin must hold a JSON fragment array or {\"fragments\": [...]}: %w", err)
	}
	return wrapped.Fragments, nil
}
