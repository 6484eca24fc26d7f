package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/jnovel"
)

// newClient builds the catalog client, honoring the global proxy flag.
func newClient() *jnovel.Client {
	client := jnovel.NewClient()
	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	if proxy != "" {
		if err := client.SetProxy(proxy); err != nil {
			utils.Log.Fatal("Invalid proxy string: ", err)
		}
	}
	return client
}

// authenticate tries the stored token first, then the configured or
// prompted credentials. Returns a fresh account snapshot.
func authenticate(client *jnovel.Client) jnovel.UserData {
	tokenPath := mustExpand(viper.GetString("token_file"))
	if raw, err := os.ReadFile(tokenPath); err == nil {
		token := strings.TrimSpace(string(raw))
		if token != "" {
			user, err := client.FetchUserData(token)
			if err == nil {
				return user
			}
			if !errors.Is(err, jnovel.ErrUnauthorized) {
				utils.Log.Fatal(err)
			}
			utils.Log.Debug("Stored token was rejected, logging in again")
		}
	}

	email := viper.GetString("email")
	password := viper.GetString("password")
	for {
		if email == "" || password == "" {
			email, password = promptCredentials()
		}
		user, err := client.Login(email, password)
		if err == nil {
			return user
		}
		if errors.Is(err, jnovel.ErrBadCredentials) {
			fmt.Println("Login failed.")
			email, password = "", ""
			continue
		}
		utils.Log.Fatal(err)
	}
}

func promptCredentials() (string, string) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter login email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		utils.Log.Fatal("Could not read login email: ", err)
	}
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		utils.Log.Fatal("Could not read password: ", err)
	}
	return strings.TrimSpace(email), string(password)
}

func saveToken(user jnovel.UserData) {
	tokenPath := mustExpand(viper.GetString("token_file"))
	if err := os.WriteFile(tokenPath, []byte(user.AuthToken), 0o600); err != nil {
		utils.Log.Errorf("Saving token to %s: %v", tokenPath, err)
	}
}

func mustExpand(path string) string {
	expanded, err := utils.ExpandPath(path)
	if err != nil {
		utils.Log.Fatal(err)
	}
	return expanded
}
