// Package lexicon holds the keyword packs behind heuristic detection.
//
// A built-in pack is embedded; an operator may replace sections with a TOML
// file and have it hot-reloaded with Watcher.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalidTOML wraps decode failures.
	ErrInvalidTOML = errors.New("invalid lexicon TOML")
	// ErrInvalidRule wraps semantic validation failures.
	ErrInvalidRule = errors.New("invalid lexicon rule")
)

//go:embed default.toml
var defaultTOML string

// Rule is the keyword set for one flag category.
type Rule struct {
	Severity   string   `toml:"severity"`
	Confidence float64  `toml:"confidence"`
	Terms      []string `toml:"terms"`
}

// Lexicon is the decoded file form. Keys are category and tone names.
type Lexicon struct {
	Flags map[string]Rule     `toml:"flags"`
	Tones map[string][]string `toml:"tones"`
}

var validSeverities = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// Default returns the embedded pack.
func Default() *Lexicon {
	lx, err := Parse(defaultTOML)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded default is invalid: %v", err))
	}
	return lx
}

// Parse decodes and validates a TOML document.
func Parse(doc string) (*Lexicon, error) {
	var lx Lexicon
	if _, err := toml.Decode(doc, &lx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTOML, err)
	}
	if err := lx.Validate(); err != nil {
		return nil, err
	}
	return &lx, nil
}

// LoadFile reads path and overlays it on the default pack. Sections present
// in the file replace the default section of the same name.
// A missing file yields the default pack.
func LoadFile(path string) (*Lexicon, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}

	overlay, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for name, rule := range overlay.Flags {
		base.Flags[name] = rule
	}
	for name, terms := range overlay.Tones {
		base.Tones[name] = terms
	}
	return base, nil
}

// Validate checks severities, confidences and terms.
func (lx *Lexicon) Validate() error {
	for name, rule := range lx.Flags {
		if !validSeverities[rule.Severity] {
			return fmt.Errorf("%w: flags.%s: severity %q", ErrInvalidRule, name, rule.Severity)
		}
		if rule.Confidence < 0 || rule.Confidence > 1 {
			return fmt.Errorf("%w: flags.%s: confidence %v outside [0,1]", ErrInvalidRule, name, rule.Confidence)
		}
		if len(rule.Terms) == 0 {
			return fmt.Errorf("%w: flags.%s: no terms", ErrInvalidRule, name)
		}
	}
	for name, terms := range lx.Tones {
		if len(terms) == 0 {
			return fmt.Errorf("%w: tones.%s: no terms", ErrInvalidRule, name)
		}
	}
	return nil
}

// Compile builds matchers for every rule and tone.
func (lx *Lexicon) Compile() (*Compiled, error) {
	c := &Compiled{
		rules: make(map[string]compiledRule, len(lx.Flags)),
		tones: make(map[string]*regexp.Regexp, len(lx.Tones)),
	}
	for name, rule := range lx.Flags {
		re, err := termsPattern(rule.Terms)
		if err != nil {
			return nil, fmt.Errorf("%w: flags.%s: %v", ErrInvalidRule, name, err)
		}
		c.rules[name] = compiledRule{Rule: rule, re: re}
		c.categories = append(c.categories, name)
	}
	for name, terms := range lx.Tones {
		re, err := termsPattern(terms)
		if err != nil {
			return nil, fmt.Errorf("%w: tones.%s: %v", ErrInvalidRule, name, err)
		}
		c.tones[name] = re
	}
	sort.Strings(c.categories)
	return c, nil
}

// termsPattern joins terms into one case-insensitive alternation. Word
// boundaries are only added at ends that are word characters, so "?" and
// "send me $" still match.
func termsPattern(terms []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		p := regexp.QuoteMeta(strings.ToLower(t))
		if isWordByte(t[0]) {
			p = `\b` + p
		}
		if isWordByte(t[len(t)-1]) {
			p += `\b`
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, errors.New("no usable terms")
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(parts, "|") + `)`)
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
