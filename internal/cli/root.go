package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the docstore CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docstore",
		Short: "DocStore - client document and tax record backend",
		Long:  "Backend API for managing client tax records and their document files.",
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewSeedCommand())

	return cmd
}
