package cmd

import (
	"github.com/huangsam/covdelta/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the covdelta MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents query build coverage, deltas and references.`,
	Args:  cobra.NoArgs,
	// Logs go to stderr so stdio stays clean for the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
