// Command agentweb is a thin CLI host around the agentweb package, in the
// same single-root-command-with-subcommands shape as the teacher's main.go
// (cobra, package-level flags), adapted from one crawl command into a
// render/cache/detect command tree.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/clark235/agentweb"
	"github.com/clark235/agentweb/internal/cache"
	"github.com/clark235/agentweb/internal/liteweb"
	"github.com/clark235/agentweb/internal/obslog"
)

const (
	CLIName = "agentweb"
	AUTHOR  = "agentweb contributors"
	VERSION = "v0.2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var rootCmd = &cobra.Command{
	Use:  CLIName,
	Long: fmt.Sprintf("Turn a web page into an agent-friendly render - %s by %s", VERSION, AUTHOR),
}

var (
	flagCachePath    string
	flagVerbose      bool
	flagQuiet        bool
	flagQuery        string
	flagForceBrowser bool
	flagForceLite    bool
	flagNoCache      bool
	flagTimeoutMs    int
	flagChunkLimit   int
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagCachePath, "cache-path", "", "Path to the cache database (default: ~/.agentweb/cache.db)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress logging")

	renderCmd := &cobra.Command{
		Use:   "render [url]",
		Short: "Render a URL into a PageRecord and ranked chunks",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	renderCmd.Flags().StringVar(&flagQuery, "query", "", "Query to rank chunks against")
	renderCmd.Flags().BoolVar(&flagForceBrowser, "force-browser", false, "Always use the headless browser backend")
	renderCmd.Flags().BoolVar(&flagForceLite, "force-lite", false, "Always use the scriptless HTTP backend, skipping SPA detection")
	renderCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the result cache")
	renderCmd.Flags().IntVar(&flagTimeoutMs, "timeout-ms", 0, "Render timeout in milliseconds (0 = backend default)")
	renderCmd.Flags().IntVar(&flagChunkLimit, "chunk-limit", 0, "Number of chunks to return, ranked by query if set (0 = default)")

	detectCmd := &cobra.Command{
		Use:   "detect-spa [url]",
		Short: "Fetch a URL and report the SPA-likelihood heuristic, without rendering",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetectSPA,
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or manage the result cache",
	}
	cacheStatsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print cache occupancy stats",
		RunE:  runCacheStats,
	}
	cacheInvalidateCmd := &cobra.Command{
		Use:   "invalidate [url]",
		Short: "Drop every cached entry for a URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheInvalidate,
	}
	cacheCmd.AddCommand(cacheStatsCmd, cacheInvalidateCmd)

	rootCmd.AddCommand(renderCmd, detectCmd, cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		obslog.Log.Error(err)
		os.Exit(1)
	}
}

func setupLogging() {
	obslog.SetVerbose(flagVerbose)
	obslog.SetQuiet(flagQuiet)
}

func openCache() (*cache.Store, error) {
	path := flagCachePath
	if path == "" {
		var err error
		path, err = cache.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return cache.Open(path)
}

func printJSON(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	setupLogging()
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	o := agentweb.New(store)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := o.Render(ctx, args[0], agentweb.RenderOptions{
		Query:        flagQuery,
		ForceBrowser: flagForceBrowser,
		ForceLite:    flagForceLite,
		NoCache:      flagNoCache,
		TimeoutMs:    flagTimeoutMs,
		ChunkLimit:   flagChunkLimit,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runDetectSPA(cmd *cobra.Command, args []string) error {
	setupLogging()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fr, err := liteweb.FetchRawHTML(ctx, args[0], 0)
	if err != nil {
		return err
	}
	report := agentweb.DetectSPA(string(fr.Body))
	return printJSON(report)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	setupLogging()
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	o := agentweb.New(store)
	stats, err := o.CacheStats(context.Background())
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	setupLogging()
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	o := agentweb.New(store)
	n, err := o.InvalidateCache(context.Background(), args[0])
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"url": args[0], "invalidated": n})
}
