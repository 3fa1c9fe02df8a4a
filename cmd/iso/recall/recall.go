// Package recallcmder provides the recall command for querying an agent's
// semantic memory directly.
package recallcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridmind/iso/cmd/iso/app"
	"github.com/gridmind/iso/pkg/cliui"
	"github.com/gridmind/iso/pkg/logger"
	"github.com/gridmind/iso/pkg/utils"
)

type recallCommander struct {
	agentID   string
	userID    string
	topK      int
	debug     bool
	configDir string

	logger *zap.Logger
}

const recallLongDesc string = `Query an agent's semantic memory.

Embeds the query text and returns the most similar turns from the
agent's conversation with the given user, ranked by similarity.

Examples:
  iso recall --agent sam "what did we decide about the schema"
  iso recall --agent sam --user alice -k 10 "favorite color"`

const recallShortDesc string = "Query an agent's semantic memory"

func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.agentID, "agent", "a", "", "Agent whose memory to query (required)")
	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "default", "User id for the conversation")
	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 5, "Number of matches to return")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func (c *recallCommander) run(cmd *cobra.Command, query string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := cmd.Context()

	a, err := app.New(ctx, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	matches, err := a.Recall.Query(ctx, c.agentID, c.userID, query, c.topK)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for _, m := range matches {
		fmt.Printf("  %s  turn %s  %s\n      %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("%.3f", m.Score)),
			cliui.ValueStyle.Render(fmt.Sprintf("#%d", m.TurnID)),
			cliui.DimStyle.Render(fmt.Sprintf("[%s @ %s]", m.Role, m.Timestamp.Format("2006-01-02 15:04"))),
			utils.Truncate(m.Text, 120),
		)
	}

	return nil
}
