package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/jncsync/jncsync/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	  _                                
	 (_)_ __   ___ ___ _   _ _ __   ___ 
	 | | '_ \ / __/ __| | | | '_ \ / __|
	 | | | | | (__\__ \ |_| | | | | (__ 
	_/ |_| |_|\___|___/\__, |_| |_|\___|
	|__/               |___/            

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jncsync",
	Short: "Keep a local mirror of your J-Novel Club library.",
	Long: LOGO + `jncsync mirrors your purchased J-Novel Club volumes to disk: it follows new
series, orders newly released volumes of followed series, buys coins when
needed, downloads your books, and stops tracking series that are complete.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jncsync.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".jncsync")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("jnc")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.jncsync.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("email", "")
	viper.SetDefault("password", "")
	viper.SetDefault("download_dir", "~/Downloads")
	viper.SetDefault("downloaded_books_file", "~/.downloadedJncBooks.csv")
	viper.SetDefault("owned_series_file", "~/.jncOwnedSeries.csv")
	viper.SetDefault("token_file", "~/.jncToken")
	viper.SetDefault("history_db", "~/.jncsyncHistory.db")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
