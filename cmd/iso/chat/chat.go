// Package chatcmder provides the chat command for interactive conversation
// with a configured agent persona.
package chatcmder

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridmind/iso/cmd/iso/app"
	"github.com/gridmind/iso/pkg/cliui"
	"github.com/gridmind/iso/pkg/logger"
)

var userPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")

type chatCommander struct {
	agentID       string
	userID        string
	commitAborted bool
	markdown      bool
	debug         bool
	configDir     string

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session with an agent.

Each exchange is committed to the agent's chronological memory and
indexed into its semantic memory. On every turn the agent sees the
recent window plus the most relevant earlier turns for this user.

Type your message and press enter. Use /quit or Ctrl-D to exit.

Examples:
  iso chat --agent sam
  iso chat --agent sam --user alice --commit-aborted`

const chatShortDesc string = "Interactive chat with an agent persona"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.agentID, "agent", "a", "", "Agent persona to chat with (required)")
	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "default", "User id for this conversation")
	cmd.Flags().BoolVar(&cmder.commitAborted, "commit-aborted", false, "Record an error turn when a response is aborted")
	cmd.Flags().BoolVarP(&cmder.markdown, "markdown", "m", false, "Render responses as markdown after streaming")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.NewEngine(c.agentID, c.commitAborted)
	if err != nil {
		return err
	}

	agentPrompt := cliui.AgentStyle.Render(c.agentID + "> ")

	fmt.Printf("\nChatting with %s (user %s). /quit to exit.\n\n",
		cliui.AgentStyle.Render(c.agentID), c.userID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/exit" {
			break
		}

		fmt.Print(agentPrompt)
		onDelta := func(delta string) { fmt.Print(delta) }
		if c.markdown {
			// Rendered output replaces the streamed text, so swallow deltas.
			onDelta = nil
		}

		result, err := engine.ProcessTurn(ctx, c.userID, text, onDelta)
		if err == nil && c.markdown {
			rendered, renderErr := cliui.RenderMarkdown(result.Text)
			if renderErr != nil {
				rendered = result.Text
			}
			fmt.Print(rendered)
		}
		fmt.Println()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Printf("  %s %v\n", cliui.FailMark, err)
		}
		fmt.Println()
	}

	return scanner.Err()
}
