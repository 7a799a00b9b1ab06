package storage

import (
	"sort"
	"time"
)

// VideoDetails is one YouTube video metadata record, keyed by the
// external video id. Upstream responses are inconsistent: every
// attribute field may be absent, in which case the zero value is
// stored.
type VideoDetails struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ"). Unique key, immutable.
	ID string `bson:"id" json:"id"`
	// ChannelID is the ID of the channel that owns this video. Empty means unknown.
	ChannelID string `bson:"channelId,omitempty" json:"channelId,omitempty"`
	// ChannelTitle is the display name of the owning channel.
	ChannelTitle string `bson:"channelTitle,omitempty" json:"channelTitle,omitempty"`
	// Title is the video title.
	Title string `bson:"title,omitempty" json:"title,omitempty"`
	// Description is the video description.
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	// Tags are the uploader-supplied keywords.
	Tags []string `bson:"tags,omitempty" json:"tags,omitempty"`
	// Duration is the ISO 8601 duration exactly as returned upstream (e.g., "PT4M13S").
	Duration string `bson:"duration,omitempty" json:"duration,omitempty"`
	// CategoryID is the YouTube category ID.
	CategoryID string `bson:"categoryId,omitempty" json:"categoryId,omitempty"`
	// PublishedAt is when the video was published. Zero means unknown.
	PublishedAt time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
}

// NullVideoDetails returns a record carrying only the id. It stands in
// for videos the upstream API had no data for, so that every requested
// id still materializes as a document.
func NullVideoDetails(id string) VideoDetails {
	return VideoDetails{ID: id}
}

// ChannelVideos is the per-channel membership document: the set of
// video ids known to belong to a channel. It doubles as the candidate
// shape callers pass into reconciliation.
//
// VideoIDs has set semantics and only ever grows under reconciliation;
// a member id is not guaranteed to have a VideoDetails document yet,
// the two collections converge eventually.
type ChannelVideos struct {
	// ChannelID is the YouTube channel ID. Unique key.
	ChannelID string `bson:"channelId" json:"channelId"`
	// ChannelTitle is the denormalized channel display name. Last writer wins.
	ChannelTitle string `bson:"channelTitle" json:"channelTitle"`
	// VideoIDs are the member video ids. Order carries no meaning.
	VideoIDs []string `bson:"videoIds" json:"videoIds"`
}

// ChannelVideosFromDetails groups fetched video details by their owning
// channel into membership updates. Records without a channel id (null
// records) are skipped. Output is sorted by channel id.
func ChannelVideosFromDetails(details []VideoDetails) []ChannelVideos {
	byChannel := make(map[string]*ChannelVideos)
	for _, d := range details {
		if d.ChannelID == "" {
			continue
		}
		ch, ok := byChannel[d.ChannelID]
		if !ok {
			ch = &ChannelVideos{ChannelID: d.ChannelID}
			byChannel[d.ChannelID] = ch
		}
		if d.ChannelTitle != "" {
			ch.ChannelTitle = d.ChannelTitle
		}
		ch.VideoIDs = append(ch.VideoIDs, d.ID)
	}

	out := make([]ChannelVideos, 0, len(byChannel))
	for _, ch := range byChannel {
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}
