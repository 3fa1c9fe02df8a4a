// Package personacmder provides the persona command for listing and
// validating the persona files an agent runs with.
package personacmder

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridmind/iso/pkg/cliui"
	"github.com/gridmind/iso/pkg/config"
	"github.com/gridmind/iso/pkg/dotdir"
	"github.com/gridmind/iso/pkg/logger"
	"github.com/gridmind/iso/pkg/persona"
)

const personaLongDesc string = `Manage agent personas.

Personas are TOML files in the personas directory (see "personas.dir"
in config). Each file defines one agent: its system prompt, target
model, and context window parameters.

Use subcommands to list or validate personas:
  iso persona list              List loaded personas
  iso persona check <file>      Validate a persona file

Examples:
  iso persona list
  iso persona check ./personas/sam.toml`

const personaShortDesc string = "Manage agent personas"

func NewPersonaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: personaShortDesc,
		Long:  personaLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			debug, _ := cmd.Flags().GetBool("debug")
			return runList(configDir, debug)
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a persona file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
}

func runList(configDir string, debug bool) error {
	log := logger.NewLogger(debug)
	defer func() { _ = log.Sync() }()

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return fmt.Errorf("resolving iso dir: %w", err)
	}

	dir := cfg.Personas.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(target, dir)
	}

	registry, err := persona.NewRegistry(dir, log)
	if err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	ids := registry.List()
	if len(ids) == 0 {
		fmt.Printf("No personas found in %s\n", dir)
		return nil
	}

	fmt.Printf("Personas in %s:\n\n", dir)
	for _, id := range ids {
		p, err := registry.Get(id)
		if err != nil {
			continue
		}
		fmt.Printf("  %s %s %s\n",
			cliui.SuccessMark,
			cliui.KeyStyle.Render(p.AgentID),
			cliui.DimStyle.Render(fmt.Sprintf("(model %s, recent %d, semantic %d)",
				p.ModelIdentity, p.RecentN, p.SemanticK)),
		)
	}

	return nil
}

func runCheck(path string) error {
	p, err := persona.Load(path)
	if err != nil {
		fmt.Printf("  %s %s\n", cliui.FailMark, err)
		return err
	}

	fmt.Printf("  %s %s is valid %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(p.AgentID),
		cliui.DimStyle.Render(fmt.Sprintf("(model %s)", p.ModelIdentity)),
	)
	return nil
}
