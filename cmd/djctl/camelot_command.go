package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

var pitchNames = map[string]int{
	"c": 0, "b#": 0,
	"c#": 1, "db": 1,
	"d": 2,
	"d#": 3, "eb": 3,
	"e": 4, "fb": 4,
	"f": 5, "e#": 5,
	"f#": 6, "gb": 6,
	"g": 7,
	"g#": 8, "ab": 8,
	"a": 9,
	"a#": 10, "bb": 10,
	"b": 11, "cb": 11,
}

type camelotNeighbor struct {
	Key          string                 `json:"key"`
	Relationship domain.KeyRelationship `json:"relationship"`
}

type camelotView struct {
	PitchClass int               `json:"pitch_class"`
	Mode       string            `json:"mode"`
	Key        string            `json:"key"`
	Neighbors  []camelotNeighbor `json:"neighbors"`
}

func newCamelotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "camelot <key> <major|minor>",
		Short:       "Show the Camelot position of a key and its harmonic neighbours",
		Example:     "  djctl camelot 9 minor\n  djctl camelot F# major",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pitch, err := parsePitchClass(args[0])
			if err != nil {
				return err
			}
			mode, err := parseMode(args[1])
			if err != nil {
				return err
			}

			view := camelotLookup(pitch, mode)
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pitch class %d (%s) is %s\n", view.PitchClass, view.Mode, view.Key)
			rows := make([][]string, 0, len(view.Neighbors))
			for _, n := range view.Neighbors {
				rows = append(rows, []string{n.Key, string(n.Relationship)})
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Relationship"}, rows, nil))
			return nil
		},
	}
}

func camelotLookup(pitch int, mode domain.Mode) camelotView {
	key := domain.CamelotOf(pitch, mode)
	other := byte('A')
	if key.Letter == 'A' {
		other = 'B'
	}
	up := key.Number%12 + 1
	down := (key.Number+10)%12 + 1

	modeName := "minor"
	if mode == domain.Major {
		modeName = "major"
	}
	return camelotView{
		PitchClass: pitch,
		Mode:       modeName,
		Key:        key.String(),
		Neighbors: []camelotNeighbor{
			{Key: key.String(), Relationship: domain.RelationSame},
			{Key: domain.CamelotKey{Number: key.Number, Letter: other}.String(), Relationship: domain.RelationRelative},
			{Key: domain.CamelotKey{Number: up, Letter: key.Letter}.String(), Relationship: domain.RelationUpFifth},
			{Key: domain.CamelotKey{Number: down, Letter: key.Letter}.String(), Relationship: domain.RelationDownFifth},
		},
	}
}

func parsePitchClass(raw string) (int, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 11 {
			return 0, fmt.Errorf("pitch class %d out of range (0-11)", n)
		}
		return n, nil
	}
	if n, ok := pitchNames[value]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown key %q (use 0-11 or a note name such as F#)", raw)
}

func parseMode(raw string) (domain.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "major", "maj", "1":
		return domain.Major, nil
	case "minor", "min", "0":
		return domain.Minor, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (use major or minor)", raw)
	}
}
