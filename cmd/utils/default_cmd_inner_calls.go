package utils

import "github.com/spf13/cobra"

// PropagatePersistentPreRun calls the parent command's PersistentPreRun, so
// nested commands still run the root's config ingestion.
func PropagatePersistentPreRun(cmd *cobra.Command, args []string) {
	if cmd.Parent() != nil && cmd.Parent().PersistentPreRun != nil {
		cmd.Parent().PersistentPreRun(cmd.Parent(), args)
	}
}
