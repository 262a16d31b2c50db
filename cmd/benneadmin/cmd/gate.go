package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

var gateIterations int

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Password gate tools",
	Long: `Commands for creating and checking the admin.gate record of a site
document. Passwords are read from standard input, one per line.`,
}

var gateNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a gate record from a password",
	Long: `Reads the password and its confirmation from standard input and prints
the admin.gate JSON block to paste into data.config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newGate(cmd.InOrStdin(), gateIterations)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var gateCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Check a password against the gate of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		passwords, err := readLines(cmd.InOrStdin(), 1)
		if err != nil {
			return err
		}
		enabled, err := checkGate(cmd.Context(), text, passwords[0])
		if err != nil {
			return err
		}
		if !enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "gate disabled: the editor opens without a password")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "password accepted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateNewCmd, gateCheckCmd)
	gateNewCmd.Flags().IntVar(&gateIterations, "iterations", gate.DefaultIterations,
		fmt.Sprintf("PBKDF2 rounds, clamped to [%d, %d]", gate.MinIterations, gate.MaxIterations))
}

// newGate reads a password and its confirmation from r.
func newGate(r io.Reader, iterations int) (gate.Config, error) {
	lines, err := readLines(r, 2)
	if err != nil {
		return gate.Config{}, err
	}
	return gate.Generate(lines[0], lines[1], iterations)
}

// checkGate verifies password against the gate of a document. It reports
// false without error when the document has no active gate.
func checkGate(ctx context.Context, text []byte, password string) (bool, error) {
	_, cfg, err := siteconfig.MergeText(text)
	if err != nil {
		return false, err
	}
	if !gate.IsEnabled(&cfg.Admin.Gate) {
		return false, nil
	}
	g, err := gate.New(ctx, cfg.Admin.Gate, nil)
	if err != nil {
		return false, err
	}
	if err := g.Unlock(ctx, password); err != nil {
		return true, err
	}
	return true, nil
}

// readLines reads n lines, without their line endings.
func readLines(r io.Reader, n int) ([]string, error) {
	sc := bufio.NewScanner(r)
	out := make([]string, 0, n)
	for len(out) < n && sc.Scan() {
		out = append(out, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading standard input: %w", err)
	}
	if len(out) < n {
		return nil, errors.New("unexpected end of standard input")
	}
	return out, nil
}
