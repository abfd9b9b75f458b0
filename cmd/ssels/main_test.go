package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDump(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.sse")
	if err := os.WriteFile(file, []byte("(a (b c))"), 0o644); err != nil {
		t.Fatal(err)
	}
	square := filepath.Join(dir, "square.yaml")
	if err := os.WriteFile(square, []byte("brackets:\n  - {tag: list, open: '[', close: ']'}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	squareFile := filepath.Join(dir, "b.sse")
	if err := os.WriteFile(squareFile, []byte("[x]"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "default profile",
			args: []string{"dump", file},
			want: []string{"root [0,9)", "  group [0,9)", "    atom [1,2) \"a\"", "      atom [4,5) \"b\""},
		},
		{
			name: "profile file",
			args: []string{"dump", "--profile", square, squareFile},
			want: []string{"group \"list\" [0,3)", "atom [1,2) \"x\""},
		},
		{
			name:    "missing file",
			args:    []string{"dump", filepath.Join(dir, "missing.sse")},
			wantErr: true,
		},
		{
			name:    "no file",
			args:    []string{"dump"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dumpProfile = ""
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Execute(%v) expected error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute(%v) error = %v", tt.args, err)
			}
			for _, line := range tt.want {
				if !strings.Contains(out.String(), line) {
					t.Errorf("output missing %q:\n%s", line, out.String())
				}
			}
		})
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("version output = %q", out.String())
	}
}
