// Package histsync keeps a local MongoDB store of YouTube watch-history
// metadata consistent with the YouTube Data API.
//
// It maintains two collections: one document per video, and one
// membership document per channel listing that channel's known video
// ids. A reconciliation run takes candidate video ids grouped by
// channel, drops everything the membership index already knows,
// fetches the rest from the API in bounded concurrent batches, merges
// both collections idempotently, and returns the materialized result.
//
// # Quick Start
//
// Wire a client from configuration and reconcile:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := histsync.Open(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	result, err := client.Reconciler.Reconcile(ctx, candidates, reconcile.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("materialized %d videos, %d unresolved\n",
//		len(result.Videos), len(result.Unresolved))
//
// Read without fetching:
//
//	videos, err := client.Reconciler.Query(ctx, ids)
//
// # Failure semantics
//
// A rejected API key aborts the whole run and cancels in-flight
// batches; any other upstream failure is scoped to its batch and the
// run completes with those ids reported as unresolved. Every write is
// an idempotent merge, so re-running after any failure is always safe,
// and a steady-state re-run performs no writes at all.
package histsync
