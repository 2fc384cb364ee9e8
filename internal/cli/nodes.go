package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Game node pool commands",
	}

	cmd.AddCommand(newNodesListCmd())
	cmd.AddCommand(newNodesDisableCmd())
	cmd.AddCommand(newNodesEnableCmd())

	return cmd
}

func newNodesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List game nodes and their load",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result NodeListResult

			if err := client.Get("/api/v1/nodes", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newNodesDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Take a node out of game assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := client.Post(fmt.Sprintf("/api/v1/nodes/%s/disable", name), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Node %s disabled", name))
			return nil
		},
	}
}

func newNodesEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Return a node to game assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := client.Post(fmt.Sprintf("/api/v1/nodes/%s/enable", name), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Node %s enabled", name))
			return nil
		},
	}
}
