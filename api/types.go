package api

// NullID marks an id that is unset or refers to a local-only resource
// (for example a drop-in mod directory that has no server counterpart).
const NullID int64 = 0

// ModStatus mirrors the server's moderation status for a mod.
type ModStatus int

const (
	ModStatusNotAccepted ModStatus = 0
	ModStatusAccepted    ModStatus = 1
	ModStatusDeleted     ModStatus = 3
)

// ModVisibility mirrors the server's visibility flag for a mod.
type ModVisibility int

const (
	ModVisibilityHidden ModVisibility = 0
	ModVisibilityPublic ModVisibility = 1
)

// ImageLocator references a remote image: the server-side file name plus
// download URLs for the original and resized variants.
type ImageLocator struct {
	FileName  string `json:"filename"`
	Original  string `json:"original"`
	Thumb320  string `json:"thumb_320x180,omitempty"`
	Thumb1280 string `json:"thumb_1280x720,omitempty"`
}

// Download is a time-limited signed URL for a modfile binary.
type Download struct {
	BinaryURL   string `json:"binary_url"`
	DateExpires int64  `json:"date_expires"` // unix seconds
}

// FileHash carries the server-declared content hash of a modfile.
type FileHash struct {
	MD5 string `json:"md5"`
}

// Modfile is one immutable uploaded build of a mod. Build ids are assigned
// monotonically by the server and never reused.
type Modfile struct {
	ID           int64    `json:"id"`
	ModID        int64    `json:"mod_id"`
	DateAdded    int64    `json:"date_added"`
	FileSize     int64    `json:"filesize"`
	FileHash     FileHash `json:"filehash"`
	FileName     string   `json:"filename"`
	Version      string   `json:"version"`
	Changelog    string   `json:"changelog"`
	MetadataBlob string   `json:"metadata_blob"`
	Download     Download `json:"download"`
}

// ModMedia is the media collection attached to a mod profile.
type ModMedia struct {
	YoutubeURLs   []string       `json:"youtube"`
	SketchfabURLs []string       `json:"sketchfab"`
	Images        []ImageLocator `json:"images"`
}

// RatingSummary aggregates the community rating of a mod.
type RatingSummary struct {
	TotalRatings      int     `json:"total_ratings"`
	PositiveRatings   int     `json:"positive_ratings"`
	NegativeRatings   int     `json:"negative_ratings"`
	Percentage        int     `json:"percentage_positive"`
	WeightedAggregate float32 `json:"weighted_aggregate"`
	DisplayText       string  `json:"display_text"`
}

// MetadataKVP is one key-value metadata pair attached to a mod. The server
// models these as a flat add/remove set, not an upsert map, so the same key
// may briefly hold several values.
type MetadataKVP struct {
	Key   string `json:"metakey"`
	Value string `json:"metavalue"`
}

// Tag is one category tag attached to a mod.
type Tag struct {
	Name      string `json:"name"`
	DateAdded int64  `json:"date_added"`
}

// ModProfile is the server snapshot of a mod. Profiles are immutable once
// fetched; a fresher copy from an event or direct fetch supersedes the old
// one, it is never mutated in place.
type ModProfile struct {
	ID           int64         `json:"id"`
	GameID       int64         `json:"game_id"`
	Status       ModStatus     `json:"status"`
	Visible      ModVisibility `json:"visible"`
	DateAdded    int64         `json:"date_added"`
	DateUpdated  int64         `json:"date_updated"`
	DateLive     int64         `json:"date_live"`
	Logo         ImageLocator  `json:"logo"`
	HomepageURL  string        `json:"homepage_url"`
	Name         string        `json:"name"`
	NameID       string        `json:"name_id"`
	Summary      string        `json:"summary"`
	Description  string        `json:"description"`
	MetadataBlob string        `json:"metadata_blob"`
	Modfile      Modfile       `json:"modfile"` // active build
	Media        ModMedia      `json:"media"`
	Stats        RatingSummary `json:"stats"`
	MetadataKVPs []MetadataKVP `json:"metadata_kvp"`
	Tags         []Tag         `json:"tags"`
}

// TagNames returns just the tag names, in profile order.
func (p *ModProfile) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// ModStats is the statistics snapshot for a mod. Unlike profiles it carries
// a server-assigned expiry and must be refetched once that passes.
type ModStats struct {
	ModID               int64 `json:"mod_id"`
	PopularityRank      int64 `json:"popularity_rank_position"`
	PopularityRankTotal int64 `json:"popularity_rank_total_mods"`
	Downloads           int64 `json:"downloads_total"`
	Subscribers         int64 `json:"subscribers_total"`
	RatingsTotal        int   `json:"ratings_total"`
	RatingsPositive     int   `json:"ratings_positive"`
	RatingsNegative     int   `json:"ratings_negative"`
	DateExpires         int64 `json:"date_expires"` // unix seconds
}

// UserProfile is a server-side user account.
type UserProfile struct {
	ID         int64        `json:"id"`
	NameID     string       `json:"name_id"`
	Username   string       `json:"username"`
	Avatar     ImageLocator `json:"avatar"`
	Timezone   string       `json:"timezone"`
	Language   string       `json:"language"`
	ProfileURL string       `json:"profile_url"`
}

// TeamMember is one member of a mod's team.
type TeamMember struct {
	ID        int64       `json:"id"`
	User      UserProfile `json:"user"`
	Level     int         `json:"level"`
	DateAdded int64       `json:"date_added"`
	Position  string      `json:"position"`
}

// GameProfile is the catalog entry for the game itself.
type GameProfile struct {
	ID           int64        `json:"id"`
	Status       ModStatus    `json:"status"`
	DateAdded    int64        `json:"date_added"`
	DateUpdated  int64        `json:"date_updated"`
	Name         string       `json:"name"`
	NameID       string       `json:"name_id"`
	Summary      string       `json:"summary"`
	Instructions string       `json:"instructions"`
	UgcName      string       `json:"ugc_name"`
	Icon         ImageLocator `json:"icon"`
	Logo         ImageLocator `json:"logo"`
}

// ModEventType is the closed set of mod event kinds.
type ModEventType string

const (
	ModAvailable   ModEventType = "MOD_AVAILABLE"
	ModEdited      ModEventType = "MOD_EDITED"
	ModfileChanged ModEventType = "MODFILE_CHANGED"
	ModUnavailable ModEventType = "MOD_UNAVAILABLE"
	ModDeleted     ModEventType = "MOD_DELETED"
)

// ModEvent is one entry in the append-only mod event log. Event ids are
// strictly increasing; clients resume by requesting events after the last
// seen id.
type ModEvent struct {
	ID        int64        `json:"id"`
	ModID     int64        `json:"mod_id"`
	UserID    int64        `json:"user_id"`
	DateAdded int64        `json:"date_added"`
	EventType ModEventType `json:"event_type"`
}

// UserEventType is the closed set of user event kinds.
type UserEventType string

const (
	UserSubscribe   UserEventType = "USER_SUBSCRIBE"
	UserUnsubscribe UserEventType = "USER_UNSUBSCRIBE"
)

// UserEvent is one entry in the append-only user event log.
type UserEvent struct {
	ID        int64         `json:"id"`
	GameID    int64         `json:"game_id"`
	ModID     int64         `json:"mod_id"`
	UserID    int64         `json:"user_id"`
	DateAdded int64         `json:"date_added"`
	EventType UserEventType `json:"event_type"`
}
