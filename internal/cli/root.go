// Package cli defines the cobra command tree for the rentals service.
package cli

import (
	"github.com/spf13/cobra"
)

const ServiceName = "rentals"

// NewRootCmd creates the root command. Configuration comes from the environment;
// flags only override a few values.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentals",
		Short:         "Short-term rental bookings and guest/host messaging",
		Long:          "Runs the rentals API (bookings, availability and conversations) and its MongoDB migrations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)

	return root
}
