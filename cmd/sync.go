package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/engine"
	"github.com/jncsync/jncsync/pkg/history"
	"github.com/jncsync/jncsync/pkg/ledger"
)

// syncCmd is the main reconcile/order/download run.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the remote library: follow, order, download",
	Long: `Fetches your library, asks about newly seen series, orders unowned volumes
of followed series (with --order), downloads new books, and unfollows series
that are fully translated and fully downloaded. Ledger files are only
updated after the corresponding download or order succeeded.`,
	Run: func(cmd *cobra.Command, args []string) {
		order, _ := cmd.Flags().GetBool("order")
		coins, _ := cmd.Flags().GetBool("coins")
		updateBooks, _ := cmd.Flags().GetBool("update-books")
		yes, _ := cmd.Flags().GetBool("yes")
		noConfirmOrder, _ := cmd.Flags().GetBool("no-confirm-order")
		noConfirmCoins, _ := cmd.Flags().GetBool("no-confirm-coins")
		noConfirmFollow, _ := cmd.Flags().GetBool("no-confirm-follow")
		dir, _ := cmd.Flags().GetString("dir")

		client := newClient()
		user := authenticate(client)
		fmt.Printf("Logged in as %s. You have %d coins.\n", user.Name, user.Coins)
		if user.PremiumMember() {
			fmt.Println("Premium membership: coin purchases are discounted.")
		}

		if dir == "" {
			dir = viper.GetString("download_dir")
		}
		targetDir := mustExpand(dir)
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			utils.Log.Fatal("Could not create download directory: ", err)
		}

		downloadsPath := mustExpand(viper.GetString("downloaded_books_file"))
		followsPath := mustExpand(viper.GetString("owned_series_file"))

		lock, err := utils.NewLedgerLock(downloadsPath)
		if err != nil {
			utils.Log.Fatal(err)
		}
		if err := lock.Lock(); err != nil {
			utils.Log.Fatal(err)
		}
		defer lock.Unlock()

		downloads, err := ledger.LoadDownloads(downloadsPath)
		if err != nil {
			utils.Log.Fatal(err)
		}
		follows, err := ledger.LoadFollows(followsPath)
		if err != nil {
			utils.Log.Fatal(err)
		}

		ctx := context.Background()
		now := time.Now().UTC()

		var record *history.RunLog
		if historyPath := viper.GetString("history_db"); historyPath != "" {
			db, err := history.Open(mustExpand(historyPath))
			if err != nil {
				utils.Log.Warnf("History DB unavailable, continuing without it: %v", err)
			} else {
				defer db.Close()
				record, err = db.StartRun(ctx, now, user.Name)
				if err != nil {
					utils.Log.Warnf("Could not record run: %v", err)
				}
			}
		}

		run := &engine.Run{
			Client:  client,
			Confirm: utils.UserConfirm,
			Record:  record,
			Now:     now,
			Options: engine.Options{
				Order:         order,
				BuyCoins:      coins,
				UpdateBooks:   updateBooks,
				ConfirmOrder:  !yes && !noConfirmOrder,
				ConfirmCoins:  !yes && !noConfirmCoins,
				ConfirmFollow: !yes && !noConfirmFollow,
				TargetDir:     targetDir,
			},
		}

		runErr := run.Execute(ctx, &user, follows, downloads)

		// Persist whatever the run accomplished even when it ended early;
		// ledger entries are only added after their side effect succeeded.
		if err := ledger.SaveDownloads(downloadsPath, downloads); err != nil {
			utils.Log.Errorf("Saving download ledger: %v", err)
		}
		if err := ledger.SaveFollows(followsPath, follows); err != nil {
			utils.Log.Errorf("Saving follow ledger: %v", err)
		}
		saveToken(user)

		if runErr != nil {
			utils.Log.Fatal(runErr)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolP("order", "o", false, "Enable ordering books. Each order requires confirmation by default")
	syncCmd.Flags().BoolP("coins", "c", false, "Enable buying coins to cover shortfalls. Each purchase requires confirmation by default")
	syncCmd.Flags().BoolP("update-books", "u", false, "Re-download books the catalog updated since their last download")
	syncCmd.Flags().BoolP("yes", "y", false, "Disable all confirmations and assume 'yes'. USE WITH CAUTION!!! This can spend money!")
	syncCmd.Flags().Bool("no-confirm-order", false, "Disable confirmations for ordering books. USE WITH CAUTION!!! This can spend money!")
	syncCmd.Flags().Bool("no-confirm-coins", false, "Disable confirmations for buying coins. USE WITH CAUTION!!! This can spend money!")
	syncCmd.Flags().Bool("no-confirm-follow", false, "Disable confirmations for following new series")
	syncCmd.Flags().StringP("dir", "d", "", "Download target directory (defaults to the configured download_dir)")

	syncCmd.Flags().StringP("email", "E", "", "Login email")
	viper.BindPFlag("email", syncCmd.Flags().Lookup("email"))

	syncCmd.Flags().StringP("password", "P", "", "Login password")
	viper.BindPFlag("password", syncCmd.Flags().Lookup("password"))
}
