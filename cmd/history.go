package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/history"
)

// historyCmd prints what recent runs did.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show what recent runs ordered, downloaded and unfollowed",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		historyPath := viper.GetString("history_db")
		if historyPath == "" {
			utils.Log.Fatal("No history_db configured")
		}

		db, err := history.Open(mustExpand(historyPath))
		if err != nil {
			utils.Log.Fatal(err)
		}
		defer db.Close()

		events, err := db.RecentEvents(context.Background(), limit)
		if err != nil {
			utils.Log.Fatal(err)
		}
		if len(events) == 0 {
			fmt.Println("No recorded events yet.")
			return
		}
		for _, e := range events {
			line := fmt.Sprintf("%s  %-15s %s", e.OccurredAt.Format("2006-01-02 15:04"), e.Kind, e.Title)
			if e.Detail != "" {
				line += " (" + e.Detail + ")"
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of events to show")
}
