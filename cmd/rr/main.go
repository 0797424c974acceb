// Package main implements the rr CLI for manual repository operations
// against the ragd HTTP server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the ragd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rr",
	Short: "CLI for ragd repository operations",
	Long: `rr is a command-line interface for managing the repositories indexed by
the ragd daemon. It can register and deregister repositories, trigger
reindexes, list collections and run similarity searches.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "ragd server URL")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(searchCmd)
}

var (
	addName     string
	addLanguage string
)

// addCmd registers a repository and runs its initial index.
var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a repository and index it",
	Long: `Register a repository with the ragd daemon and run the initial index.

The repository name defaults to the basename of the path.

Examples:
  # Register with defaults
  rr add /srv/repos/myproject --language python

  # Register under an explicit name
  rr add /srv/repos/myproject --name backend --language typescript`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// removeCmd deregisters a repository and deletes its collection.
var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Deregister a repository and delete its collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

// showCmd lists the registered repositories.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List registered repositories",
	RunE:  runShow,
}

// reindexCmd rebuilds a repository's collection from scratch.
var reindexCmd = &cobra.Command{
	Use:   "reindex <name>",
	Short: "Rebuild a repository's collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

// searchCmd runs a similarity query against one repository.
var searchCmd = &cobra.Command{
	Use:   "search <name> <query>",
	Short: "Search a repository by free-text query",
	Long: `Search a repository's collection by free-text query.

Examples:
  rr search backend "where are http retries implemented"`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "repository name (defaults to path basename)")
	addCmd.Flags().StringVar(&addLanguage, "language", "", "repository language: python or typescript")
	_ = addCmd.MarkFlagRequired("language")
}
