// Package cli provides the command-line interface for mapsql.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/mapsql/internal/cli/commands"
	"github.com/leapstack-labs/mapsql/internal/cli/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	cfgFile = ""
	rootCmd := &cobra.Command{
		Use:   "mapsql",
		Short: "mapsql - mapping spreadsheet to dbt compiler",
		Long: `mapsql compiles spreadsheet mapping specifications into dbt artifacts.

A mapping names a target table, its source, column logic and joins. mapsql
turns it into a dbt model, optional MERGE/INSERT macros, a job descriptor,
a schedule descriptor and a JSON interchange document, resolving the
incremental unique key from the target DDL when one is available.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration; command flags override env vars and the config file
			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg)
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", slog.String("path", configFile))
			}
			logger.Debug("project root", slog.String("path", cfg.ProjectRoot))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mapsql.yaml)")
	rootCmd.PersistentFlags().String("output-dir", "", "Parent directory of all generated artifacts")
	rootCmd.PersistentFlags().String("models-dir", "", "Directory for dbt models and sources.yml")
	rootCmd.PersistentFlags().String("macros-dir", "", "Directory for merge/insert macros")
	rootCmd.PersistentFlags().String("jobs-dir", "", "Directory for job descriptors")
	rootCmd.PersistentFlags().String("dags-dir", "", "Directory for schedule descriptors")
	rootCmd.PersistentFlags().String("config-dir", "", "Directory for JSON interchange documents")
	rootCmd.PersistentFlags().String("state", "", "Path to state database")
	rootCmd.PersistentFlags().Int("parallelism", 0, "Mappings generated concurrently in a batch")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}))
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewDDLCommand())
	rootCmd.AddCommand(commands.NewKeysCommand())
	rootCmd.AddCommand(commands.NewTemplateCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewDAGCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mapsql.

To load completions:

Bash:
  $ source <(mapsql completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mapsql completion bash > /etc/bash_completion.d/mapsql
  # macOS:
  $ mapsql completion bash > $(brew --prefix)/etc/bash_completion.d/mapsql

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mapsql completion zsh > "${fpath[1]}/_mapsql"

Fish:
  $ mapsql completion fish | source

  # To load completions for each session, execute once:
  $ mapsql completion fish > ~/.config/fish/completions/mapsql.fish

PowerShell:
  PS> mapsql completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
