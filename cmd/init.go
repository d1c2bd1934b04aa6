package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hmorsi/coursewright/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize coursewright configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure coursewright and generates a .coursewright.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
