// Package classify decides whether a posting is early-career-appropriate
// from its title and description text.
package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Classifier is a pure, stateless early-career detector. The decision rule
// is `positive AND NOT negative` over the concatenated title and description.
// Postings with no positive evidence at all are rejected: the system is
// precision-oriented, a borderline posting is cheaper to omit than a senior
// role shown to graduates.
type Classifier struct {
	positive *regexp.Regexp
	negative *regexp.Regexp
}

// New compiles a classifier from positive and negative term lists. Each term
// is a regular expression fragment; matching is case-insensitive.
func New(positiveTerms, negativeTerms []string) (*Classifier, error) {
	pos, err := compileTerms(positiveTerms)
	if err != nil {
		return nil, fmt.Errorf("compile positive terms: %w", err)
	}
	neg, err := compileTerms(negativeTerms)
	if err != nil {
		return nil, fmt.Errorf("compile negative terms: %w", err)
	}
	return &Classifier{positive: pos, negative: neg}, nil
}

// NewDefault compiles a classifier from the built-in multilingual term lists.
func NewDefault() *Classifier {
	c, err := New(DefaultPositiveTerms, DefaultNegativeTerms)
	if err != nil {
		// The default lists are compile-checked by tests; a failure here is
		// a programming error, not a runtime condition.
		panic(err)
	}
	return c
}

func compileTerms(terms []string) (*regexp.Regexp, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("term list is empty")
	}
	joined := "(?i)(" + strings.Join(terms, "|") + ")"
	return regexp.Compile(joined)
}

// Classify returns true when the posting should be kept as early-career
// relevant. Title-only signals are not trusted on their own: the negative
// set is evaluated against the full text because seniority often only shows
// up as a years-of-experience requirement in the body.
func (c *Classifier) Classify(title, description string) bool {
	if strings.TrimSpace(title) == "" {
		// Malformed input: reject, do not classify.
		return false
	}
	text := title + " " + description
	if !c.positive.MatchString(text) {
		return false
	}
	return !c.negative.MatchString(text)
}
