package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/cetmix/towered/internal/complete"
	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/keybinds"
	"github.com/cetmix/towered/internal/reference"
	"github.com/cetmix/towered/internal/source"
	"github.com/cetmix/towered/internal/types"
)

// cliLogger logs to stderr; the CLI only reports problems
func cliLogger() *slog.Logger {
	return config.NewLogger(os.Stderr, slog.LevelWarn)
}

func newListCmd() *cobra.Command {
	var (
		search  string
		useFuzz bool
		keyType string
	)

	cmd := &cobra.Command{
		Use:   "list <variables|secrets>",
		Short: "List completion candidates, ranked like the popup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}

			settings, err := initConfig()
			if err != nil {
				return err
			}
			if keyType == "" {
				keyType = string(settings.SecretKeyType)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), settings.FetchTimeout)
			defer cancel()

			items, err := loadCandidates(ctx, settings, kind, types.KeyType(keyType))
			if err != nil {
				return err
			}

			var rows [][]string
			if useFuzz {
				rows = fuzzyRows(items, search)
			} else {
				rows = rankedRows(items, search)
			}
			return printTable(cmd.OutOrStdout(), []string{"NAME", "REFERENCE", "SCORE"}, rows)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by search term")
	cmd.Flags().BoolVarP(&useFuzz, "fuzzy", "f", false, "Use fuzzy matching instead of popup ranking")
	cmd.Flags().StringVarP(&keyType, "key-type", "k", "", "Key type for secrets (s = secret, k = SSH key)")

	return cmd
}

// loadCandidates opens the configured source and reads one list
func loadCandidates(ctx context.Context, settings config.Settings, kind types.Kind, keyType types.KeyType) ([]types.Candidate, error) {
	src, closeSource, err := source.Open(ctx, settings, config.DatabasePath, cliLogger())
	if err != nil {
		return nil, err
	}
	defer closeSource()

	if kind == types.KindSecret {
		return src.Secrets(ctx, keyType)
	}
	return src.Variables(ctx)
}

// rankedRows ranks with the popup scoring
func rankedRows(items []types.Candidate, search string) [][]string {
	var rows [][]string
	if strings.TrimSpace(search) == "" {
		for _, item := range items {
			rows = append(rows, []string{item.Name, item.Reference, "-"})
		}
		return rows
	}
	for _, s := range complete.Rank(items, search) {
		rows = append(rows, []string{s.Item.Name, s.Item.Reference, strconv.Itoa(s.Score)})
	}
	return rows
}

// candidateList adapts candidates to fuzzy.Source
type candidateList []types.Candidate

func (c candidateList) String(i int) string {
	return c[i].Name + " " + c[i].Reference
}

func (c candidateList) Len() int {
	return len(c)
}

// fuzzyRows ranks with sahilm/fuzzy over "name reference"
func fuzzyRows(items []types.Candidate, search string) [][]string {
	if strings.TrimSpace(search) == "" {
		return rankedRows(items, "")
	}
	var rows [][]string
	for _, match := range fuzzy.FindFrom(strings.TrimSpace(search), candidateList(items)) {
		item := items[match.Index]
		rows = append(rows, []string{item.Name, item.Reference, strconv.Itoa(match.Score)})
	}
	return rows
}

func printTable(w io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No candidates")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest>",
		Short: "Import variables and keys from a Tower YAML export or JSONC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := initConfig(); err != nil {
				return err
			}

			manifest, err := source.LoadManifest(args[0])
			if err != nil {
				return err
			}

			store, err := source.OpenStore(config.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.ImportManifest(cmd.Context(), manifest)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d variables and %d keys into %s\n",
				result.Variables, result.Keys, config.DatabasePath)
			return nil
		},
	}
}

func newRefsCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "refs <file>",
		Short: "List the variable and secret references a script uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := initConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}

			refs := reference.Extract(string(data))
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No references")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), settings.FetchTimeout)
			defer cancel()

			src, closeSource, err := source.Open(ctx, settings, config.DatabasePath, cliLogger())
			if err != nil {
				return err
			}
			defer closeSource()

			// Every key type counts as known, a script may use SSH keys too
			snap, err := source.Prefetch(ctx, src, "")
			if err != nil {
				return err
			}

			unknown := markUnknown(cmd.OutOrStdout(), refs, snap)
			if strict && unknown > 0 {
				return fmt.Errorf("%d unknown reference(s)", unknown)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a reference is unknown")
	return cmd
}

// markUnknown prints refs with a status column and returns how many are unknown
func markUnknown(w io.Writer, refs []reference.Ref, snap source.Snapshot) int {
	known := map[types.Kind]map[string]bool{
		types.KindVariable: referenceSet(snap.Variables),
		types.KindSecret:   referenceSet(snap.Secrets),
	}

	unknown := 0
	var rows [][]string
	for _, ref := range refs {
		status := "ok"
		if !known[ref.Kind][ref.Reference] {
			status = "unknown"
			unknown++
		}
		rows = append(rows, []string{ref.Kind.String(), ref.Reference, strconv.Itoa(ref.Line), status})
	}
	printTable(w, []string{"KIND", "REFERENCE", "LINE", "STATUS"}, rows)
	return unknown
}

func referenceSet(items []types.Candidate) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item.Reference] = true
	}
	return set
}

func newKeybindsCmd() *cobra.Command {
	var (
		initFile bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "keybinds",
		Short: "Show keybindings or write an example keybinds.jsonc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			out := cmd.OutOrStdout()

			if initFile {
				if _, err := os.Stat(config.KeybindsFile); err == nil && !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", config.KeybindsFile)
				}
				if err := keybinds.CreateExampleConfig(config.KeybindsFile); err != nil {
					return fmt.Errorf("failed to write keybinds: %w", err)
				}
				fmt.Fprintf(out, "Wrote %s\n", config.KeybindsFile)
				return nil
			}

			registry, err := keybinds.LoadOrDefault(config.KeybindsFile)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, kbContext := range keybinds.Contexts() {
				for _, action := range keybinds.ActionsFor(kbContext) {
					rows = append(rows, []string{string(kbContext), string(action), registry.GetBindingString(kbContext, action)})
				}
			}
			if err := printTable(out, []string{"CONTEXT", "ACTION", "KEYS"}, rows); err != nil {
				return err
			}

			if result := keybinds.NewValidator().ValidateRegistry(registry); result.HasWarnings() {
				fmt.Fprintln(out, result.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "Write the default bindings to ~/.towered/keybinds.jsonc")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing keybinds file")
	return cmd
}
