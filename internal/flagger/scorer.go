// Package flagger scores free text for suspicion signals. The lifecycle code
// only depends on the Scorer interface; KeywordScorer is the default strategy.
package flagger

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DefaultKeywords is the built-in suspicion term list.
var DefaultKeywords = []string{
	"betting", "crypto", "money laundering", "nude", "drug", "blackmail",
	"dark web", "bitcoin", "casino", "win money", "10x returns", "double your money",
}

// DefaultThreshold is the minimum score at which a record is flagged.
const DefaultThreshold = 1

// Scorer computes a non-negative suspicion count for a piece of text.
type Scorer interface {
	Score(text string) int
}

// KeywordScorer counts case-insensitive, non-overlapping occurrences of a fixed
// keyword list in a single left-to-right pass. Matching is substring based,
// not word-boundary aware, so "cryptocurrency" counts as "crypto".
type KeywordScorer struct {
	terms []string
	re    *regexp.Regexp
}

// NewKeywordScorer compiles terms into one alternation. Blank and duplicate
// terms are dropped; an empty list yields a scorer that always returns 0.
func NewKeywordScorer(terms []string) *KeywordScorer {
	seen := make(map[string]struct{}, len(terms))
	kept := make([]string, 0, len(terms))
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(norm.NFKC.String(t)))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		kept = append(kept, t)
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	s := &KeywordScorer{terms: kept}
	if len(quoted) > 0 {
		s.re = regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
	}
	return s
}

// Terms returns the normalized keyword list in configuration order.
func (s *KeywordScorer) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Score returns the number of keyword matches in text. Text is NFKC-normalized
// first so full-width and other compatibility forms still match.
func (s *KeywordScorer) Score(text string) int {
	if s == nil || s.re == nil || text == "" {
		return 0
	}
	return len(s.re.FindAllStringIndex(norm.NFKC.String(text), -1))
}

// Matches returns the matched substrings, lower-cased, in order of occurrence.
func (s *KeywordScorer) Matches(text string) []string {
	if s == nil || s.re == nil || text == "" {
		return nil
	}
	found := s.re.FindAllString(norm.NFKC.String(text), -1)
	for i := range found {
		found[i] = strings.ToLower(found[i])
	}
	return found
}

// KeywordFile is the on-disk YAML shape of a keyword override.
//
//	keywords:
//	  - crypto
//	  - casino
//	threshold: 2
type KeywordFile struct {
	Keywords  []string `yaml:"keywords"`
	Threshold int      `yaml:"threshold"`
}

// ErrNoKeywords is returned when a keyword file lists no usable terms.
var ErrNoKeywords = errors.New("keyword file has no keywords")

// LoadKeywords reads a YAML keyword file. A zero threshold in the file means
// "keep the configured default" and is returned as 0.
func LoadKeywords(path string) (KeywordFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeywordFile{}, fmt.Errorf("read keywords %s: %w", path, err)
	}
	var kf KeywordFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return KeywordFile{}, fmt.Errorf("parse keywords %s: %w", path, err)
	}
	if kf.Threshold < 0 {
		return KeywordFile{}, fmt.Errorf("parse keywords %s: negative threshold %d", path, kf.Threshold)
	}
	n := 0
	for _, k := range kf.Keywords {
		if strings.TrimSpace(k) != "" {
			n++
		}
	}
	if n == 0 {
		return KeywordFile{}, fmt.Errorf("%s: %w", path, ErrNoKeywords)
	}
	return kf, nil
}

// Flag reports whether score reaches threshold. Thresholds below 1 are
// treated as 1 so a record with no matches is never flagged.
func Flag(score, threshold int) bool {
	if threshold < 1 {
		threshold = 1
	}
	return score >= threshold
}
