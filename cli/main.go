package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"histsync"
	"histsync/config"
	"histsync/reconcile"
	"histsync/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "reconcile":
		cmdReconcile(args)
	case "query":
		cmdQuery(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `histsync - YouTube watch-history metadata reconciliation

Usage:
  histsync reconcile [flags] <candidates.json>   Sync candidate video ids into the store
  histsync query -ids <id,id,...>                Read stored details without fetching
  histsync help                                  Show this help message

The candidates file holds the per-channel candidate sets:

  [{"channelId": "UC...", "channelTitle": "...", "videoIds": ["...", "..."]}]

Configuration comes from histsync.yaml and HISTSYNC_* environment
variables; HISTSYNC_API_KEY and HISTSYNC_MONGO_URI are the ones you
usually need.
`)
}

func cmdReconcile(args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite already-stored video details (repair run)")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: histsync reconcile [flags] <candidates.json>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing candidates file\n")
		fs.Usage()
		os.Exit(1)
	}

	candidates, err := readCandidates(argv[0])
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	client, logger, err := openClient(ctx, *verbose)
	if err != nil {
		fatal(err)
	}
	defer client.Close(ctx)
	defer logger.Sync()

	opts := reconcile.Options{
		ForceUpdate: *force,
		Progress: func(stage reconcile.Stage, done, total int) {
			if stage == reconcile.StageFetching && total > 0 {
				fmt.Fprintf(os.Stderr, "\rfetching batches: %d/%d", done, total)
				if done == total {
					fmt.Fprintln(os.Stderr)
				}
			}
		},
	}

	result, err := client.Reconciler.Reconcile(ctx, candidates, opts)
	if err != nil {
		fatal(err)
	}
	printSummary(result)
}

func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	idList := fs.String("ids", "", "Comma-separated video ids")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: histsync query -ids <id,id,...>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if *idList == "" {
		fmt.Fprintf(os.Stderr, "Error: missing -ids\n")
		fs.Usage()
		os.Exit(1)
	}
	ids := strings.Split(*idList, ",")

	ctx := context.Background()
	client, logger, err := openClient(ctx, *verbose)
	if err != nil {
		fatal(err)
	}
	defer client.Close(ctx)
	defer logger.Sync()

	videos, err := client.Reconciler.Query(ctx, ids)
	if err != nil {
		fatal(err)
	}
	printVideos(videos)
}

func openClient(ctx context.Context, verbose bool) (*histsync.Client, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var logger *zap.Logger
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}

	client, err := histsync.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

func readCandidates(path string) ([]storage.ChannelVideos, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var candidates []storage.ChannelVideos
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return candidates, nil
}

func printSummary(result *reconcile.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", result.RunID)
	fmt.Fprintf(w, "unknown ids\t%d\n", result.Unknown)
	fmt.Fprintf(w, "fetched\t%d\n", result.Fetched)
	fmt.Fprintf(w, "unresolved\t%d\n", len(result.Unresolved))
	fmt.Fprintf(w, "materialized\t%d\n", len(result.Videos))
	w.Flush()

	for _, be := range result.BatchErrors {
		fmt.Fprintf(os.Stderr, "batch of %d ids failed: %v\n", len(be.IDs), be.Err)
	}
}

func printVideos(videos []storage.VideoDetails) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCHANNEL\tPUBLISHED\tTITLE\n")
	for _, v := range videos {
		published := ""
		if !v.PublishedAt.IsZero() {
			published = v.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.ChannelTitle, published, truncate(v.Title, 60))
	}
	w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
