// Package cli implements the jarvis command line.
package cli

import "github.com/spf13/cobra"

var (
	personaPath string
	offlineFlag bool
	noVoiceFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "Conversational assistant with long-term memory and voice",
	Long: "JARVIS answers in a persona-driven voice, remembers important facts across sessions, " +
		"watches your task list and speaks its replies.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&personaPath, "persona", "", "Persona YAML file (default: $JARVIS_PERSONA_FILE or built-in)")
	RootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "Answer with canned offline replies only")
	RootCmd.PersistentFlags().BoolVar(&noVoiceFlag, "no-voice", false, "Disable speech synthesis")
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
