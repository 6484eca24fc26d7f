package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jncsync/jncsync/internal/utils"
	"github.com/jncsync/jncsync/pkg/engine"
)

// libraryCmd prints the owned library without touching any local state.
var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List the books you own",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		user := authenticate(client)

		library, err := client.FetchLibrary(user)
		if err != nil {
			utils.Log.Fatal(err)
		}

		now := time.Now().UTC()
		for _, book := range engine.SortedLibrary(library) {
			status := "owned"
			if book.Preorder(now) {
				status = "preorder"
			}
			fmt.Printf("%s\t%s\tvol. %d\t%s\t%s\n", book.PublishedAt.Format("2006-01-02"), status, book.Volume, book.Title, book.ID)
		}
		saveToken(user)
	},
}

// preordersCmd prints the not-yet-released books you already own.
var preordersCmd = &cobra.Command{
	Use:   "preorders",
	Short: "List your current preorders",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		user := authenticate(client)

		library, err := client.FetchLibrary(user)
		if err != nil {
			utils.Log.Fatal(err)
		}

		now := time.Now().UTC()
		preorders := engine.Preorders(engine.SortedLibrary(library), now)
		if len(preorders) == 0 {
			fmt.Println("No current preorders.")
		}
		for _, book := range preorders {
			fmt.Printf("%s  %s\n", book.PublishedAt.Format("2006-01-02"), book.Title)
		}
		saveToken(user)
	},
}

func init() {
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(preordersCmd)
}
