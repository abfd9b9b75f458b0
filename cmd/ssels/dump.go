package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/parser"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

var (
	dumpProfile string

	dumpCmd = &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the syntax tree of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := runDump(cmd.Context(), args[0], dumpProfile)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tree.Dump())
			return nil
		},
	}
)

func init() {
	dumpCmd.Flags().StringVar(&dumpProfile, "profile", "", "path to a YAML or JSON profile (default: S-expressions)")
}

func runDump(ctx context.Context, path, profilePath string) (*syntax.Tree, error) {
	p := profile.Default()
	if profilePath != "" {
		var err error
		if p, err = profile.LoadFile(profilePath); err != nil {
			return nil, err
		}
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool := parser.NewParserPool(1)
	defer pool.Close()
	return pool.Parse(ctx, profile.NewHolder(p).Current(), string(text))
}
