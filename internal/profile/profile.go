// Package profile describes the grammar handed to the tree engine: which
// characters separate tokens, which character escapes, which token pairs
// form brackets and which tokens are operators.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Bracket is a tagged open/close token pair.
type Bracket struct {
	Tag   string `json:"tag"   yaml:"tag"`
	Open  string `json:"open"  yaml:"open"`
	Close string `json:"close" yaml:"close"`
}

// Operator is a prefix operator unless Infix is set.
type Operator struct {
	Tag   string `json:"tag"   yaml:"tag"`
	Token string `json:"token" yaml:"token"`
	Infix bool   `json:"infix" yaml:"infix"`
}

// Profile is a declarative grammar. The zero value is not useful, start
// from Default.
type Profile struct {
	Name       string     `json:"name"       yaml:"name"`
	Separators []string   `json:"separators" yaml:"separators"`
	Escape     string     `json:"escape"     yaml:"escape"`
	Brackets   []Bracket  `json:"brackets"   yaml:"brackets"`
	Operators  []Operator `json:"operators"  yaml:"operators"`

	// Grammar names a tree-sitter grammar. When set, the bracket fields
	// are ignored and documents are parsed with that grammar instead.
	Grammar string `json:"grammar" yaml:"grammar"`
}

var ErrInvalidProfile = errors.New("profile: invalid profile")

// Default returns the S-expression profile: whitespace separators,
// backslash escapes and a single untagged pair of parentheses.
func Default() Profile {
	return Profile{
		Name:       "sexp",
		Separators: []string{" ", "\n", "\t", "\r"},
		Escape:     `\`,
		Brackets:   []Bracket{{Tag: "", Open: "(", Close: ")"}},
		Operators:  []Operator{},
	}
}

var (
	grammarsMu sync.RWMutex
	grammars   = map[string]bool{}
)

// RegisterGrammar makes names valid values of Profile.Grammar. Packages
// providing tree-sitter grammars call it from init.
func RegisterGrammar(names ...string) {
	grammarsMu.Lock()
	defer grammarsMu.Unlock()
	for _, name := range names {
		grammars[name] = true
	}
}

func knownGrammar(name string) (bool, []string) {
	grammarsMu.RLock()
	defer grammarsMu.RUnlock()
	if grammars[name] {
		return true, nil
	}
	names := make([]string, 0, len(grammars))
	for n := range grammars {
		names = append(names, n)
	}
	sort.Strings(names)
	return false, names
}

// Validate checks that every token is non-empty and that no token plays two
// roles at once. A profile naming a grammar must name a registered one.
func (p Profile) Validate() error {
	if p.Grammar != "" {
		if ok, names := knownGrammar(p.Grammar); !ok {
			return fmt.Errorf("%w: unknown grammar %q (have %s)", ErrInvalidProfile, p.Grammar, strings.Join(names, ", "))
		}
		return nil
	}
	roles := map[string]string{}
	claim := func(token, role string) error {
		if token == "" {
			return fmt.Errorf("%w: empty %s token", ErrInvalidProfile, role)
		}
		if prev, ok := roles[token]; ok && prev != role {
			return fmt.Errorf("%w: %q used as both %s and %s", ErrInvalidProfile, token, prev, role)
		}
		roles[token] = role
		return nil
	}
	for _, s := range p.Separators {
		if err := claim(s, "separator"); err != nil {
			return err
		}
	}
	if p.Escape != "" {
		if err := claim(p.Escape, "escape"); err != nil {
			return err
		}
	}
	if len(p.Brackets) == 0 {
		return fmt.Errorf("%w: no bracket pairs", ErrInvalidProfile)
	}
	for _, b := range p.Brackets {
		if err := claim(b.Open, "opener"); err != nil {
			return err
		}
		if err := claim(b.Close, "closer"); err != nil {
			return err
		}
	}
	for _, op := range p.Operators {
		if err := claim(op.Token, "operator"); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a profile from r. YAML is a superset of JSON, so both formats
// are accepted; fields missing from the input keep their Default values.
func Decode(r io.Reader) (Profile, error) {
	p := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, p.Validate()
}

// LoadFile reads a profile from a .yaml, .yml or .json file.
func LoadFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		p := Default()
		if err := json.NewDecoder(f).Decode(&p); err != nil {
			return Profile{}, fmt.Errorf("failed to decode profile %s: %w", path, err)
		}
		return p, p.Validate()
	default:
		p, err := Decode(f)
		if err != nil {
			return Profile{}, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	}
}
