package server

import (
	"fmt"

	"github.com/mwantia/modbot/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/modbot/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the ModBot agent",
		Long:  `Start the ModBot agent: consume the gateway event feed, dispatch commands and serve the optional admin API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			return agent.NewAgent(cfg).Serve(cmd.Context())
		},
	}

	return cmd
}
