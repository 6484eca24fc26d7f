package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/jnovel"
)

// loginCmd checks credentials and stores a fresh token.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the auth token",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		user := authenticate(client)
		saveToken(user)
		fmt.Printf("Logged in as %s (%d coins).\n", user.Name, user.Coins)
	},
}

// logoutCmd invalidates the stored token remotely and removes it locally.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate and remove the stored auth token",
	Run: func(cmd *cobra.Command, args []string) {
		tokenPath := mustExpand(viper.GetString("token_file"))
		raw, err := os.ReadFile(tokenPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No stored token.")
				return
			}
			utils.Log.Fatal(err)
		}

		token := strings.TrimSpace(string(raw))
		if token != "" {
			client := newClient()
			if err := client.Logout(jnovel.UserData{AuthToken: token}); err != nil {
				utils.Log.Warnf("Remote logout failed: %v", err)
			}
		}
		if err := os.Remove(tokenPath); err != nil {
			utils.Log.Fatal(err)
		}
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
