package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nkoval/sysward/internal/history"
)

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent runs to show")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	recs, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if historyFormat == "json" {
		out, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(recs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, r := range recs {
		status := "ok"
		switch {
		case r.Stage == "policy" && !r.Allowed:
			status = "denied"
		case !r.Success:
			status = "failed"
		}
		fmt.Printf("%s  %-7s %-16s %-24q %s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			status, r.Action, r.Target, r.Request)
	}
	return nil
}
