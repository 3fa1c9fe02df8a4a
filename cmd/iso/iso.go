// Package isocmder
package isocmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/gridmind/iso/cmd/iso/chat"
	configcmder "github.com/gridmind/iso/cmd/iso/config"
	personacmder "github.com/gridmind/iso/cmd/iso/persona"
	recallcmder "github.com/gridmind/iso/cmd/iso/recall"
	versioncmder "github.com/gridmind/iso/cmd/version"
)

const isoLongDesc string = `Iso is a dual-memory context engine for AI personas.

Every conversation turn is committed to an append-only chronological log
and indexed into a semantic vector store. On each incoming turn, the
recent window and the most relevant past turns are merged into a bounded
context for the model call.

Common commands:
  iso chat --agent <id>       Interactive chat with an agent
  iso recall --agent <id>     Query an agent's semantic memory
  iso persona list            List loaded personas
  iso config list             Show resolved configuration`

const isoShortDesc string = "Iso - dual-memory context engine for AI personas"

func NewIsoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iso",
		Short: isoShortDesc,
		Long:  isoLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .iso/ directory location")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(personacmder.NewPersonaCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
