package storage

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// planVideoUpserts builds the bulk write models for UpsertVideos.
// existing holds the ids that already have a stored document. Without
// forceUpdate an existing document wins and the incoming record
// produces no operation at all.
func planVideoUpserts(existing map[string]struct{}, incoming []VideoDetails, forceUpdate bool) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(incoming))
	for _, d := range incoming {
		if _, ok := existing[d.ID]; !ok {
			models = append(models, mongo.NewInsertOneModel().SetDocument(d))
			continue
		}
		if forceUpdate {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.D{{Key: "id", Value: d.ID}}).
				SetUpdate(bson.D{{Key: "$set", Value: d}}))
		}
	}
	return models
}

// planChannelMerges builds the bulk write models for MergeChannelVideos.
// existing maps channel id to the stored membership document. Unknown
// channels insert as-is; known channels update only when the incoming
// ids contribute something the stored set lacks, which is what keeps a
// steady-state re-sync write-free.
func planChannelMerges(existing map[string]ChannelVideos, updates []ChannelVideos) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		stored, ok := existing[u.ChannelID]
		if !ok {
			models = append(models, mongo.NewInsertOneModel().SetDocument(u))
			continue
		}

		merged, grew := unionIDs(stored.VideoIDs, u.VideoIDs)
		if !grew {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "channelId", Value: u.ChannelID}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "videoIds", Value: merged},
				{Key: "channelTitle", Value: u.ChannelTitle},
			}}}))
	}
	return models
}

// unionIDs merges two id lists with set semantics and reports whether
// incoming contributed any id the stored set lacked. Output is sorted
// so repeated merges of the same inputs are byte-identical.
func unionIDs(stored, incoming []string) ([]string, bool) {
	set := make(map[string]struct{}, len(stored)+len(incoming))
	for _, id := range stored {
		set[id] = struct{}{}
	}

	grew := false
	for _, id := range incoming {
		if _, ok := set[id]; !ok {
			grew = true
			set[id] = struct{}{}
		}
	}

	merged := make([]string, 0, len(set))
	for id := range set {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	return merged, grew
}
