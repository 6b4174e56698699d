package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/tui"
	towerversion "github.com/cetmix/towered/internal/version"
)

var (
	version        = "0.1.0"
	versionChecker = towerversion.NewChecker()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "towered [file]",
		Short: "Cetmix Tower command script editor",
		Long: `towered edits Cetmix Tower command scripts in the terminal.

Type {{ to complete a variable reference and #! to complete a secret reference.
Candidates come from the local store (see 'towered import'), a Tower YAML
manifest or a remote API, as set in ~/.towered/config.yaml.

Examples:
  towered deploy.sh                         # Edit a script
  towered import export.yaml                # Load variables and keys from a Tower export
  towered list variables --search db        # Ranked variable list
  towered list secrets --fuzzy -s tok       # Fuzzy secret search
  towered refs deploy.sh                    # References used by a script`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return tui.Run(path)
		},
	}

	rootCmd.AddCommand(
		newListCmd(),
		newImportCmd(),
		newRefsCmd(),
		newKeybindsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "towered %s\n", version)
			if !check {
				return nil
			}

			release, newer, err := versionChecker.Check(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			if newer {
				fmt.Fprintf(out, "Update available: %s (%s)\n", release.Version(), release.HTMLURL)
			} else {
				fmt.Fprintln(out, "Up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}

// initConfig prepares ~/.towered and loads the effective settings
func initConfig() (config.Settings, error) {
	if err := config.Initialize(); err != nil {
		return config.Settings{}, fmt.Errorf("failed to initialize config: %w", err)
	}
	return config.LoadSettings(config.GetSettingsFilePath())
}
