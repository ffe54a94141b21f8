package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"jarvis/internal/memory"
	"jarvis/pkg"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func init() {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect long-term memory",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List consolidated facts, most important first",
		RunE:  runMemoryList,
	}
	listCmd.Flags().Bool("json", false, "Output JSON")

	addCmd := &cobra.Command{
		Use:   "add <fact>",
		Short: "Consolidate a fact directly",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMemoryAdd,
	}
	addCmd.Flags().IntP("importance", "i", 50, "Importance score")

	memoryCmd.AddCommand(listCmd, addCmd)
	RootCmd.AddCommand(memoryCmd)
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	records := a.memory.LoadAll(cmd.Context())
	if asJSON {
		b, _ := sonic.ConfigStd.MarshalIndent(records, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	printMemory(cmd.OutOrStdout(), records)
	return nil
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	importance, _ := cmd.Flags().GetInt("importance")

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	record := a.memory.Append(cmd.Context(), strings.Join(args, " "), importance)
	a.memory.Flush()

	kept := false
	for _, r := range a.memory.Records() {
		if r.ID == record.ID {
			kept = true
		}
	}
	if !kept {
		fmt.Fprintf(cmd.OutOrStdout(), "not kept: memory holds %d facts of higher importance\n", memory.MaxRecords)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), record.ID)
	return nil
}

func printMemory(out io.Writer, records []pkg.MemoryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "Nenhum dado consolidado ainda.")
		return
	}
	for _, r := range records {
		ts := time.UnixMilli(r.Timestamp).Format(time.DateTime)
		fmt.Fprintf(out, "%3d  %s  %s\n", r.Importance, ts, r.Content)
	}
}
