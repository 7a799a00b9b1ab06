package reconcile

import (
	"context"
	"sort"

	"histsync/storage"
)

// Planner computes which candidate video ids are not yet known to the
// channel membership index and therefore still need an upstream fetch.
type Planner struct {
	store storage.ChannelVideoStore
}

// NewPlanner creates a planner over the given membership store.
func NewPlanner(store storage.ChannelVideoStore) *Planner {
	return &Planner{store: store}
}

// Unknown returns the candidate ids absent from the stored membership
// of the involved channels: union of candidate ids minus union of
// stored member ids, read in one batched query. Channels with no
// stored document contribute nothing to the known set, so a first sync
// returns every candidate.
//
// The exclusion consults only the membership index, not the video
// collection. A video document deleted out-of-band without an index
// update is therefore never re-fetched.
//
// The result is sorted for deterministic batching; callers must not
// attach meaning to the order.
func (p *Planner) Unknown(ctx context.Context, candidates []storage.ChannelVideos) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	candidateIDs := make(map[string]struct{})
	channelIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		channelIDs = append(channelIDs, c.ChannelID)
		for _, id := range c.VideoIDs {
			candidateIDs[id] = struct{}{}
		}
	}

	known, err := p.store.FindChannelsByIDs(ctx, channelIDs)
	if err != nil {
		return nil, err
	}
	for _, ch := range known {
		for _, id := range ch.VideoIDs {
			delete(candidateIDs, id)
		}
	}

	unknown := make([]string, 0, len(candidateIDs))
	for id := range candidateIDs {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	return unknown, nil
}
