package cli

import (
	"fmt"

	"jarvis/internal/audio"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:       "cue <activate|complete|error>",
		Short:     "Play a feedback cue",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(audio.CueActivate), string(audio.CueComplete), string(audio.CueError)},
		RunE:      runCue,
	}

	RootCmd.AddCommand(cmd)
}

func runCue(cmd *cobra.Command, args []string) error {
	cue, ok := audio.ParseCue(args[0])
	if !ok {
		return fmt.Errorf("unknown cue %q", args[0])
	}

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	if a.device == nil {
		return fmt.Errorf("cue: %w", audio.ErrDeviceUnavailable)
	}
	if err := a.device.Play(cmd.Context(), audio.Synthesize(cue, audio.SpeechSampleRate), audio.SpeechSampleRate); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
