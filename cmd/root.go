package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "coursewright",
	Short: "AI-assisted curriculum generation grounded in a knowledge base",
	Long: `Coursewright turns a programme outline into a full vocational curriculum:
programme specification, unit specifications, assessments, and a skills
companion. Every generated section is grounded in a local knowledge base,
fact-checked against its sources, and attributed back to them.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".coursewright.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
