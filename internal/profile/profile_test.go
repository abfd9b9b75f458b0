package profile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
)

func TestDefault(t *testing.T) {
	p := profile.Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if len(p.Brackets) != 1 || p.Brackets[0] != (profile.Bracket{Tag: "", Open: "(", Close: ")"}) {
		t.Errorf("Default().Brackets = %v", p.Brackets)
	}
	if strings.Join(p.Separators, "") != " \n\t\r" {
		t.Errorf("Default().Separators = %q", p.Separators)
	}
	if p.Escape != `\` || len(p.Operators) != 0 {
		t.Errorf("Default() = %+v", p)
	}
}

func TestValidate(t *testing.T) {
	profile.RegisterGrammar("go")

	tests := []struct {
		name   string
		modify func(p *profile.Profile)
		valid  bool
	}{
		{"default", func(p *profile.Profile) {}, true},
		{"no escape", func(p *profile.Profile) { p.Escape = "" }, true},
		{"extra bracket", func(p *profile.Profile) {
			p.Brackets = append(p.Brackets, profile.Bracket{Tag: "vec", Open: "[", Close: "]"})
		}, true},
		{"operators", func(p *profile.Profile) {
			p.Operators = []profile.Operator{{Tag: "quote", Token: "'"}, {Tag: "pair", Token: ".", Infix: true}}
		}, true},
		{"no brackets", func(p *profile.Profile) { p.Brackets = nil }, false},
		{"empty separator", func(p *profile.Profile) { p.Separators = append(p.Separators, "") }, false},
		{"empty closer", func(p *profile.Profile) { p.Brackets[0].Close = "" }, false},
		{"separator as opener", func(p *profile.Profile) { p.Separators = append(p.Separators, "(") }, false},
		{"operator as escape", func(p *profile.Profile) {
			p.Operators = []profile.Operator{{Token: `\`}}
		}, false},
		{"grammar skips checks", func(p *profile.Profile) { p.Brackets = nil; p.Grammar = "go" }, true},
		{"unknown grammar", func(p *profile.Profile) { p.Grammar = "rust" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profile.Default()
			tt.modify(&p)
			err := p.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.valid && !errors.Is(err, profile.ErrInvalidProfile) {
				t.Errorf("Validate() error = %v, want ErrInvalidProfile", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	p, err := profile.Decode(strings.NewReader("name: edn\nbrackets:\n  - {tag: list, open: '(', close: ')'}\n  - {tag: vector, open: '[', close: ']'}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "edn" || len(p.Brackets) != 2 {
		t.Errorf("Decode() = %+v", p)
	}
	if len(p.Separators) != 4 {
		t.Errorf("Decode() lost default separators: %q", p.Separators)
	}

	if _, err := profile.Decode(strings.NewReader("brackets: []\n")); !errors.Is(err, profile.ErrInvalidProfile) {
		t.Errorf("Decode() with no brackets error = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"p.json": `{"name": "json", "escape": "!"}`,
		"p.yaml": "name: yaml\nescape: '!'\n",
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			p, err := profile.LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if p.Escape != "!" || len(p.Brackets) != 1 {
				t.Errorf("LoadFile() = %+v", p)
			}
		})
	}
	if _, err := profile.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("LoadFile() of missing file expected error")
	}
}

func TestHolder(t *testing.T) {
	h := profile.NewHolder(profile.Default())
	first := h.Current()
	if first.Generation != 1 {
		t.Errorf("initial generation = %d, want 1", first.Generation)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Replace(profile.Default())
		}()
	}
	wg.Wait()
	if got := h.Current().Generation; got != 11 {
		t.Errorf("generation after 10 replaces = %d, want 11", got)
	}
	if first.Generation != 1 {
		t.Errorf("old snapshot was mutated")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(path, []byte("name: one\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := profile.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	h := profile.NewHolder(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := make(chan *profile.Snapshot, 16)
	if err := profile.Watch(ctx, path, h, func(s *profile.Snapshot) { reloads <- s }); err != nil {
		t.Fatal(err)
	}

	// An invalid profile is ignored.
	if err := os.WriteFile(path, []byte("brackets: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("name: other\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("name: two\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap := <-reloads:
			if snap.Profile.Name == "other" {
				t.Fatalf("reloaded from an unrelated file")
			}
			if snap.Profile.Name == "two" {
				if h.Current().Profile.Name != "two" {
					t.Errorf("Current() = %+v", h.Current())
				}
				return
			}
		case <-timeout:
			t.Fatalf("profile was not reloaded, current = %q", h.Current().Profile.Name)
		}
	}
}
