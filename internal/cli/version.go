package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"nanokern/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "schedsim", buildinfo.String())
		},
	}
}
