package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// indexTimeout bounds add and reindex calls, which block on a full walk,
// embed and upsert of the repository.
const indexTimeout = 10 * time.Minute

// RepositoryRequest matches internal/http/server.go RepositoryRequest.
type RepositoryRequest struct {
	Action   string `json:"action"`
	RepoName string `json:"repo_name"`
	RepoPath string `json:"repo_path"`
	Language string `json:"language"`
}

// ReindexRequest matches internal/http/server.go ReindexRequest.
type ReindexRequest struct {
	RepoName string `json:"repo_name"`
}

// SearchRequest matches internal/http/server.go SearchRequest.
type SearchRequest struct {
	Text           string `json:"text"`
	CollectionName string `json:"collection_name"`
}

// SearchResult matches internal/search Result.
type SearchResult struct {
	FilePath   string  `json:"file_path"`
	Code       string  `json:"code"`
	ChunkType  string  `json:"chunk_type"`
	Similarity float32 `json:"similarity"`
}

// CollectionsResponse matches internal/http/server.go CollectionsResponse.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

// runAdd handles the add command.
func runAdd(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", args[0], err)
	}

	name := addName
	if name == "" {
		name = filepath.Base(path)
	}

	req := RepositoryRequest{
		Action:   "add",
		RepoName: name,
		RepoPath: path,
		Language: addLanguage,
	}
	if err := postJSON("/repositories", req, indexTimeout, nil); err != nil {
		return err
	}

	fmt.Printf("Added %s (%s, %s)\n", name, path, addLanguage)
	return nil
}

// runRemove handles the remove command.
func runRemove(cmd *cobra.Command, args []string) error {
	req := RepositoryRequest{
		Action:   "remove",
		RepoName: args[0],
	}
	if err := postJSON("/repositories", req, 30*time.Second, nil); err != nil {
		return err
	}

	fmt.Printf("Removed %s\n", args[0])
	return nil
}

// runShow handles the show command.
func runShow(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/collections", serverURL)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var collections CollectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&collections); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(collections.Collections) == 0 {
		fmt.Println("No repositories registered")
		return nil
	}
	for _, name := range collections.Collections {
		fmt.Println(name)
	}
	return nil
}

// runReindex handles the reindex command.
func runReindex(cmd *cobra.Command, args []string) error {
	req := ReindexRequest{RepoName: args[0]}
	if err := postJSON("/reindex", req, indexTimeout, nil); err != nil {
		return err
	}

	fmt.Printf("Reindexed %s\n", args[0])
	return nil
}

// runSearch handles the search command.
func runSearch(cmd *cobra.Command, args []string) error {
	req := SearchRequest{
		CollectionName: args[0],
		Text:           args[1],
	}

	var results []SearchResult
	if err := postJSON("/search", req, 30*time.Second, &results); err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SIMILARITY\tTYPE\tFILE")
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%s\t%s\n", r.Similarity, r.ChunkType, r.FilePath)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return nil
}

// postJSON sends a JSON request to the daemon and optionally decodes the
// response body into out.
func postJSON(route string, body interface{}, timeout time.Duration, out interface{}) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + route
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
