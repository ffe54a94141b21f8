package cli

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE:  runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	stats, err := a.backend.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	out := struct {
		Backend      string `json:"backend"`
		Tasks        int    `json:"tasks"`
		Interactions int    `json:"interactions"`
		Memories     int    `json:"memories"`
	}{
		Backend:      a.config.Store.Backend,
		Tasks:        stats.Tasks,
		Interactions: stats.Interactions,
		Memories:     len(a.memory.LoadAll(cmd.Context())),
	}

	b, _ := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
