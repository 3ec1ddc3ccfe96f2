package lexicon

import "regexp"

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Compiled is an immutable, ready-to-match lexicon. Safe for concurrent use.
type Compiled struct {
	rules      map[string]compiledRule
	tones      map[string]*regexp.Regexp
	categories []string
}

// Categories lists flag categories with rules, sorted by name.
func (c *Compiled) Categories() []string {
	return c.categories
}

// Rule returns the rule for category.
func (c *Compiled) Rule(category string) (Rule, bool) {
	r, ok := c.rules[category]
	return r.Rule, ok
}

// MatchFlag reports whether text triggers the rule for category.
func (c *Compiled) MatchFlag(category, text string) bool {
	r, ok := c.rules[category]
	return ok && r.re.MatchString(text)
}

// MatchTone reports whether text carries any term of tone.
func (c *Compiled) MatchTone(tone, text string) bool {
	re, ok := c.tones[tone]
	return ok && re.MatchString(text)
}

// MustCompileDefault compiles the embedded pack.
func MustCompileDefault() *Compiled {
	c, err := Default().Compile()
	if err != nil {
		panic(err)
	}
	return c
}
