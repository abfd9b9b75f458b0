package sitteradapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/sitteradapter"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

func TestCanLoadGrammars(t *testing.T) {
	for _, name := range sitteradapter.Grammars() {
		e, err := sitteradapter.NewEngine(name, 1)
		if err != nil {
			t.Fatalf("NewEngine(%q) error = %v", name, err)
		}
		e.Close()
	}
	if _, err := sitteradapter.NewEngine("typst", 1); err == nil {
		t.Errorf("NewEngine(typst) expected error")
	}
}

func TestGrammarsAreRegistered(t *testing.T) {
	for _, name := range sitteradapter.Grammars() {
		if err := (profile.Profile{Grammar: name}).Validate(); err != nil {
			t.Errorf("Validate() with grammar %q error = %v", name, err)
		}
	}
	err := profile.Profile{Grammar: "rust"}.Validate()
	if !errors.Is(err, profile.ErrInvalidProfile) {
		t.Errorf("Validate() with grammar rust error = %v, want ErrInvalidProfile", err)
	}
}

func TestParseGo(t *testing.T) {
	e, err := sitteradapter.NewEngine("go", 2)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	text := "package main\n\nfunc f() int { return g(1, \"é\") }\n"
	tree, err := e.Parse(context.Background(), text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tree.Root().Range != (syntax.Range{Start: 0, End: len([]rune(text))}) {
		t.Errorf("root range = %v", tree.Root().Range)
	}

	// Offsets are runes, so the call ends right after the closing paren
	// even though "é" takes two bytes.
	start := len([]rune("package main\n\nfunc f() int { return "))
	path := tree.InnermostEnclosingPath(syntax.Range{Start: start, End: start})
	got, err := tree.SubtreeText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "g" {
		t.Errorf("innermost node = %q, want %q", got, "g")
	}
	r, ok := tree.ExpandSelection(syntax.Range{Start: start, End: start + 1})
	if !ok || tree.Slice(r) != `g(1, "é")` {
		t.Errorf("ExpandSelection() = %q, %v", tree.Slice(r), ok)
	}
}

func TestParseSyntaxError(t *testing.T) {
	e, err := sitteradapter.NewEngine("python", 1)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	_, err = e.Parse(context.Background(), "def f(:\n")
	var perr *syntax.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *syntax.ParseError", err)
	}
}
