package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/agentgate/internal/config"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	workspace  string
	provider   string
	model      string
	mode       string
	dbPath     string
}

func newRootCmd(deps Dependencies) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "agentgate",
		Short:         "Coding agent with a permission gate",
		Long:          "agentgate runs a language-model agent in a workspace.\nEvery tool call is classified, inspected for threats and judged\nagainst the permission policy before it runs.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("agentgate {{.Version}}\n")
	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (.json, .yaml, .yml); default ~/.config/agentgate/config.json")
	pf.StringVarP(&flags.workspace, "workspace", "w", "", "workspace root (default: current directory)")
	pf.StringVar(&flags.provider, "provider", "", "model backend: gemini, anthropic or openai")
	pf.StringVarP(&flags.model, "model", "m", "", "model name")
	pf.StringVar(&flags.mode, "mode", "", "permission mode: auto, ask, smart_approve or deny")
	pf.StringVar(&flags.dbPath, "db", "", "session database path")

	cmd.AddCommand(
		newRunCmd(deps, flags),
		newChatCmd(deps, flags),
		newSessionsCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads .env, the config file and the flag overrides, in that
// order of precedence from lowest to highest.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.NewLoader().LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if f.provider != "" {
		cfg.Provider.Name = f.provider
	}
	if f.model != "" {
		cfg.Provider.Model = f.model
	}
	if f.mode != "" {
		cfg.Permission.Mode = f.mode
	}
	if f.dbPath != "" {
		cfg.Session.DBPath = f.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "agentgate %s\n", version)
			return nil
		},
	}
}
