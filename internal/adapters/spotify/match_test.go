package spotify

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "kitten sitting", a: "kitten", b: "sitting", want: 3},
		{name: "empty to word", a: "", b: "sound", want: 5},
		{name: "word to empty", a: "beat", b: "", want: 4},
		{name: "identical", a: "camelot", b: "camelot", want: 0},
		{name: "multibyte", a: "café", b: "cafe", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levenshteinDistance(tt.a, tt.b)
			if got != tt.want {
				t.Fatalf("distance: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreResult(t *testing.T) {
	tests := []struct {
		name         string
		targetArtist string
		targetTitle  string
		actualArtist string
		actualTitle  string
		wantMatch    bool
	}{
		{
			name:         "matches remastered title",
			targetArtist: "Pharrell Williams",
			targetTitle:  "Happy",
			actualArtist: "Pharrell Williams",
			actualTitle:  "Happy (Remastered 2014)",
			wantMatch:    true,
		},
		{
			name:         "case and punctuation",
			targetArtist: "daft punk",
			targetTitle:  "one more time",
			actualArtist: "Daft Punk",
			actualTitle:  "One More Time!",
			wantMatch:    true,
		},
		{
			name:         "different song",
			targetArtist: "Daft Punk",
			targetTitle:  "Around the World",
			actualArtist: "Bonobo",
			actualTitle:  "Kerala",
			wantMatch:    false,
		},
		{
			name:         "empty target",
			actualArtist: "Bonobo",
			actualTitle:  "Kerala",
			wantMatch:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreResult(tt.targetArtist, tt.targetTitle, tt.actualArtist, tt.actualTitle)
			if got := score >= searchMatchThreshold; got != tt.wantMatch {
				t.Fatalf("score %.3f: match got %v, want %v", score, got, tt.wantMatch)
			}
		})
	}
}
