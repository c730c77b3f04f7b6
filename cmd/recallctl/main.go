// recallctl is the operator CLI for the record stores: index provisioning,
// record CRUD, similarity search, and the reminder due-scan.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/logger"
)

var (
	storeFlag string
	rootCmd   = &cobra.Command{
		Use:   "recallctl",
		Short: "Admin CLI for the semantic record stores",
	}
)

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&storeFlag, "store", "s", "idea", "Target store: idea or memory")

	rootCmd.AddCommand(
		newProvisionCmd(),
		newAddCmd(),
		newImportCmd(),
		newGetCmd(),
		newUpdateCmd(),
		newRmCmd(),
		newSearchCmd(),
		newListCmd(),
		newDueCmd(),
		newSentCmd(),
		newStatusCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log := logger.New("recallctl")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
