package table

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ibus-m17n/internal/m17n"
)

// Keymap is a table input method: key sequences mapped to output text or
// to candidate groups.
type Keymap struct {
	Language    string `yaml:"language"`
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Rules       []Rule `yaml:"rules"`
}

// Rule maps Keys, one key per character, to Output or Candidates.
type Rule struct {
	Keys       string  `yaml:"keys"`
	Output     string  `yaml:"output,omitempty"`
	Candidates []Group `yaml:"candidates,omitempty"`
}

// Group is one candidate group. A scalar in the document is a block of
// single-character candidates, a sequence is a list of strings.
type Group struct {
	Block   string
	Strings []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (g *Group) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		g.Block = n.Value
		return nil
	case yaml.SequenceNode:
		return n.Decode(&g.Strings)
	}
	return fmt.Errorf("line %d: candidate group must be a string or a list", n.Line)
}

func (g Group) candidateGroup() m17n.CandidateGroup {
	if g.Strings == nil {
		return m17n.CandidateGroup{Block: m17n.TextOf(g.Block)}
	}
	out := make([]m17n.Text, len(g.Strings))
	for i, s := range g.Strings {
		out[i] = m17n.TextOf(s)
	}
	return m17n.CandidateGroup{Strings: out}
}

// ParseKeymap decodes and validates a keymap document.
func ParseKeymap(data []byte) (*Keymap, error) {
	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("invalid keymap: %w", err)
	}
	var km Keymap
	if err := yaml.Unmarshal(data, &km); err != nil {
		return nil, fmt.Errorf("decode keymap: %w", err)
	}
	seen := make(map[string]bool, len(km.Rules))
	for _, r := range km.Rules {
		if seen[r.Keys] {
			return nil, fmt.Errorf("invalid keymap: duplicate rule for %q", r.Keys)
		}
		seen[r.Keys] = true
	}
	return &km, nil
}

// LoadKeymap reads a keymap file.
func LoadKeymap(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	km, err := ParseKeymap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return km, nil
}

// errNoRule is returned by index lookups of unknown sequences.
var errNoRule = errors.New("no rule")

// seqKey joins key symbols into a map key. Named keys never collide with
// character sequences.
func seqKey(keys []m17n.Symbol) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, "\x00")
}

// ruleKeys splits Rule.Keys into one symbol per character.
func ruleKeys(keys string) []m17n.Symbol {
	out := make([]m17n.Symbol, 0, len(keys))
	for _, r := range keys {
		out = append(out, m17n.Symbol(string(r)))
	}
	return out
}

// index is the compiled rule table of a keymap.
type index struct {
	rules    map[string]*Rule
	prefixes map[string]bool // proper prefixes of some rule
}

func newIndex(km *Keymap) *index {
	ix := &index{
		rules:    make(map[string]*Rule, len(km.Rules)),
		prefixes: make(map[string]bool),
	}
	for i := range km.Rules {
		r := &km.Rules[i]
		keys := ruleKeys(r.Keys)
		ix.rules[seqKey(keys)] = r
		for n := 1; n < len(keys); n++ {
			ix.prefixes[seqKey(keys[:n])] = true
		}
	}
	return ix
}

// rule returns the rule matching seq exactly.
func (ix *index) rule(seq []m17n.Symbol) (*Rule, error) {
	if r, ok := ix.rules[seqKey(seq)]; ok {
		return r, nil
	}
	return nil, errNoRule
}

// extends reports whether a longer rule starts with seq.
func (ix *index) extends(seq []m17n.Symbol) bool {
	return ix.prefixes[seqKey(seq)]
}

// matches reports whether seq is a rule or a prefix of one.
func (ix *index) matches(seq []m17n.Symbol) bool {
	_, err := ix.rule(seq)
	return err == nil || ix.extends(seq)
}
