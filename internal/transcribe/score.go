package transcribe

import (
	"strings"
	"unicode"
)

// Score is the edit distance between a reference transcript and a
// hypothesis, counted in tokens.
type Score struct {
	Rate          float64 // (Substitutions+Insertions+Deletions) / RefTokens
	Substitutions int
	Insertions    int
	Deletions     int
	RefTokens     int
}

// Unit selects how transcripts are split into tokens.
type Unit int

const (
	// Words splits on whitespace (WER).
	Words Unit = iota
	// Chars compares individual non-space characters (CER), which is the
	// usual measure for Chinese and Japanese where words are not spaced.
	Chars
)

// UnitFor picks the token unit for a decode language.
func UnitFor(language string) Unit {
	switch language {
	case "zh", "ja", "yue", "th", "lo", "my", "km", "bo":
		return Chars
	default:
		return Words
	}
}

// Compare scores hypothesis against reference. Both are lowercased and
// stripped of punctuation first. An empty reference scores zero.
func Compare(reference, hypothesis string, unit Unit) Score {
	ref := tokenize(reference, unit)
	hyp := tokenize(hypothesis, unit)

	n, m := len(ref), len(hyp)
	if n == 0 {
		return Score{}
	}

	// d[i][j] = edits to turn ref[:i] into hyp[:j]
	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ref[i-1] == hyp[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = 1 + min(d[i-1][j-1], d[i-1][j], d[i][j-1])
		}
	}

	var s Score
	for i, j := n, m; i > 0 || j > 0; {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1]:
			i, j = i-1, j-1
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			s.Substitutions++
			i, j = i-1, j-1
		case i > 0 && d[i][j] == d[i-1][j]+1:
			s.Deletions++
			i--
		default:
			s.Insertions++
			j--
		}
	}

	s.RefTokens = n
	s.Rate = float64(s.Substitutions+s.Insertions+s.Deletions) / float64(n)
	return s
}

func tokenize(s string, unit Unit) []string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)

	if unit == Words {
		return strings.Fields(s)
	}

	var out []string
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, string(r))
		}
	}
	return out
}
