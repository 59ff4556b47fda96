// Package api talks to the remote mod service: paginated resource and event
// feeds, multipart mutation endpoints and resumable binary downloads.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"modworks/fetch"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Pagination and Page re-export the fetch helper types so callers can drive
// client endpoints through fetch.All without importing both packages.
type (
	Pagination  = fetch.Pagination
	Page[T any] = fetch.Page[T]
)

// Client handles communication with the mod service REST API. All list
// endpoints are paginated; mutation endpoints accept flat form fields with
// optional binary uploads.
type Client struct {
	BaseURL    string
	APIKey     string
	Token      string // OAuth token for authenticated endpoints
	UserAgent  string
	GameID     int64
	HTTPClient *http.Client

	// streamClient carries no overall timeout: a large archive read can
	// outlast defaultTimeout without being mid-body aborted. Stalls are
	// still bounded at the transport level.
	streamClient *http.Client

	log *zap.SugaredLogger
}

// NewClient creates an API client for one game catalog.
func NewClient(baseURL string, apiKey string, gameID int64, userAgent string, log *zap.SugaredLogger) (*Client, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("user agent is not configured")
	}
	if gameID == NullID {
		return nil, fmt.Errorf("game id is not configured")
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		GameID:    gameID,
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		streamClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: defaultTimeout,
			},
		},
		log: log,
	}, nil
}

// SetToken installs the OAuth token used for authenticated endpoints.
func (c *Client) SetToken(token string) { c.Token = token }

// listEnvelope is the wire shape of every paginated response.
type listEnvelope[T any] struct {
	Data         []T `json:"data"`
	ResultCount  int `json:"result_count"`
	ResultOffset int `json:"result_offset"`
	ResultLimit  int `json:"result_limit"`
	ResultTotal  int `json:"result_total"`
}

func (c *Client) do(method, path string, query url.Values, body io.Reader, contentType string, target interface{}) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.APIKey != "" {
		q := req.URL.Query()
		q.Set("api_key", c.APIKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode json response: %w", err)
		}
	}
	return nil
}

// parseErrorResponse turns a non-2xx response into a typed *Error.
func parseErrorResponse(resp *http.Response) error {
	apiErr := &Error{Code: resp.StatusCode}

	var wire struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err == nil {
		if wire.Error.Code != 0 {
			apiErr.Code = wire.Error.Code
		}
		apiErr.Message = wire.Error.Message
	}

	if retryAfter := resp.Header.Get("X-Ratelimit-Retryafter"); retryAfter != "" {
		if secs, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
			apiErr.RetryAfter = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return apiErr
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func paginate(q url.Values, limit, offset int) url.Values {
	q.Set("_limit", strconv.Itoa(limit))
	q.Set("_offset", strconv.Itoa(offset))
	return q
}

// ModFilter narrows a get-all-mods query.
type ModFilter struct {
	IDs          []int64 // id-in filter; empty means all mods of the game
	DateLiveMin  int64
	DateLiveMax  int64
}

func (f ModFilter) values() url.Values {
	q := url.Values{}
	if len(f.IDs) > 0 {
		q.Set("id-in", joinIDs(f.IDs))
	}
	if f.DateLiveMin > 0 {
		q.Set("date_live-min", strconv.FormatInt(f.DateLiveMin, 10))
	}
	if f.DateLiveMax > 0 {
		q.Set("date_live-max", strconv.FormatInt(f.DateLiveMax, 10))
	}
	return q
}

// EventFilter narrows an event feed query. MinID resumes the feed after the
// last seen event id.
type EventFilter struct {
	ModIDs       []int64
	MinID        int64
	DateAddedMin int64
	DateAddedMax int64
}

func (f EventFilter) values() url.Values {
	q := url.Values{}
	if len(f.ModIDs) > 0 {
		q.Set("mod_id-in", joinIDs(f.ModIDs))
	}
	if f.MinID > 0 {
		q.Set("id-min", strconv.FormatInt(f.MinID, 10))
	}
	if f.DateAddedMin > 0 {
		q.Set("date_added-min", strconv.FormatInt(f.DateAddedMin, 10))
	}
	if f.DateAddedMax > 0 {
		q.Set("date_added-max", strconv.FormatInt(f.DateAddedMax, 10))
	}
	return q
}

func toPage[T any](env listEnvelope[T], limit int) Page[T] {
	capacity := env.ResultLimit
	if capacity <= 0 {
		capacity = limit
	}
	return Page[T]{Items: env.Data, Capacity: capacity, Offset: env.ResultOffset, Total: env.ResultTotal}
}

// GetMods fetches one page of the game's mod catalog.
func (c *Client) GetMods(f ModFilter, p Pagination) (Page[ModProfile], error) {
	var env listEnvelope[ModProfile]
	q := paginate(f.values(), p.Limit, p.Offset)
	err := c.do("GET", fmt.Sprintf("/games/%d/mods", c.GameID), q, nil, "", &env)
	if err != nil {
		return Page[ModProfile]{}, fmt.Errorf("failed to get mods: %w", err)
	}
	return toPage(env, p.Limit), nil
}

// GetMod fetches a single mod profile.
func (c *Client) GetMod(modID int64) (*ModProfile, error) {
	var profile ModProfile
	err := c.do("GET", fmt.Sprintf("/games/%d/mods/%d", c.GameID, modID), nil, nil, "", &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get mod %d: %w", modID, err)
	}
	return &profile, nil
}

// GetModEvents fetches one page of the game's mod event log.
func (c *Client) GetModEvents(f EventFilter, p Pagination) (Page[ModEvent], error) {
	var env listEnvelope[ModEvent]
	q := paginate(f.values(), p.Limit, p.Offset)
	err := c.do("GET", fmt.Sprintf("/games/%d/mods/events", c.GameID), q, nil, "", &env)
	if err != nil {
		return Page[ModEvent]{}, fmt.Errorf("failed to get mod events: %w", err)
	}
	return toPage(env, p.Limit), nil
}

// GetUserEvents fetches one page of the authenticated user's subscription
// event log, scoped to the client's game.
func (c *Client) GetUserEvents(f EventFilter, p Pagination) (Page[UserEvent], error) {
	var env listEnvelope[UserEvent]
	q := paginate(f.values(), p.Limit, p.Offset)
	q.Set("game_id", strconv.FormatInt(c.GameID, 10))
	err := c.do("GET", "/me/events", q, nil, "", &env)
	if err != nil {
		return Page[UserEvent]{}, fmt.Errorf("failed to get user events: %w", err)
	}
	return toPage(env, p.Limit), nil
}

// GetUserMods fetches one page of the mods the authenticated user is
// subscribed to, scoped to the client's game.
func (c *Client) GetUserMods(p Pagination) (Page[ModProfile], error) {
	var env listEnvelope[ModProfile]
	q := paginate(url.Values{}, p.Limit, p.Offset)
	q.Set("game_id", strconv.FormatInt(c.GameID, 10))
	err := c.do("GET", "/me/subscribed", q, nil, "", &env)
	if err != nil {
		return Page[ModProfile]{}, fmt.Errorf("failed to get subscribed mods: %w", err)
	}
	return toPage(env, p.Limit), nil
}

// GetAuthenticatedUser fetches the profile behind the installed token.
func (c *Client) GetAuthenticatedUser() (*UserProfile, error) {
	var user UserProfile
	if err := c.do("GET", "/me", nil, nil, "", &user); err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	return &user, nil
}

// GetGame fetches the game's own catalog profile.
func (c *Client) GetGame() (*GameProfile, error) {
	var game GameProfile
	if err := c.do("GET", fmt.Sprintf("/games/%d", c.GameID), nil, nil, "", &game); err != nil {
		return nil, fmt.Errorf("failed to get game profile: %w", err)
	}
	return &game, nil
}

// GetModfile fetches fresh build metadata, including a fresh download
// locator. Used when a cached locator has expired.
func (c *Client) GetModfile(modID, modfileID int64) (*Modfile, error) {
	var mf Modfile
	err := c.do("GET", fmt.Sprintf("/games/%d/mods/%d/files/%d", c.GameID, modID, modfileID), nil, nil, "", &mf)
	if err != nil {
		return nil, fmt.Errorf("failed to get modfile %d for mod %d: %w", modfileID, modID, err)
	}
	return &mf, nil
}

// GetModTeam fetches one page of a mod's team member list.
func (c *Client) GetModTeam(modID int64, p Pagination) (Page[TeamMember], error) {
	var env listEnvelope[TeamMember]
	q := paginate(url.Values{}, p.Limit, p.Offset)
	err := c.do("GET", fmt.Sprintf("/games/%d/mods/%d/team", c.GameID, modID), q, nil, "", &env)
	if err != nil {
		return Page[TeamMember]{}, fmt.Errorf("failed to get team for mod %d: %w", modID, err)
	}
	return toPage(env, p.Limit), nil
}

// GetModStats fetches the statistics snapshot for a mod.
func (c *Client) GetModStats(modID int64) (*ModStats, error) {
	var stats ModStats
	err := c.do("GET", fmt.Sprintf("/games/%d/mods/%d/stats", c.GameID, modID), nil, nil, "", &stats)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for mod %d: %w", modID, err)
	}
	return &stats, nil
}

// FileField is one binary part of a multipart mutation request.
type FileField struct {
	Field    string
	FileName string
	Data     []byte
}

// upload posts a multipart form with the given string fields and files.
func (c *Client) upload(path string, fields map[string]string, files []FileField, target interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field %q: %w", key, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return fmt.Errorf("failed to create form file %q: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("failed to write form file %q: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart form: %w", err)
	}
	return c.do("POST", path, nil, &buf, w.FormDataContentType(), target)
}

// deleteForm issues a DELETE with url-encoded form fields.
func (c *Client) deleteForm(path string, fields url.Values) error {
	return c.do("DELETE", path, nil, strings.NewReader(fields.Encode()), "application/x-www-form-urlencoded", nil)
}

// AddMod creates a new mod from the given core fields plus a logo upload.
func (c *Client) AddMod(fields map[string]string, logo FileField) (*ModProfile, error) {
	var profile ModProfile
	err := c.upload(fmt.Sprintf("/games/%d/mods", c.GameID), fields, []FileField{logo}, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to add mod: %w", err)
	}
	return &profile, nil
}

// EditMod updates the given core fields of an existing mod. Only fields
// present in the map are transmitted.
func (c *Client) EditMod(modID int64, fields map[string]string) (*ModProfile, error) {
	form := url.Values{}
	for key, value := range fields {
		form.Set(key, value)
	}
	var profile ModProfile
	err := c.do("PUT", fmt.Sprintf("/games/%d/mods/%d", c.GameID, modID),
		nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to edit mod %d: %w", modID, err)
	}
	return &profile, nil
}

// AddModMedia uploads media to a mod: a logo, a zip of gallery images, or
// youtube/sketchfab links.
func (c *Client) AddModMedia(modID int64, fields map[string]string, files []FileField) error {
	err := c.upload(fmt.Sprintf("/games/%d/mods/%d/media", c.GameID, modID), fields, files, nil)
	if err != nil {
		return fmt.Errorf("failed to add media to mod %d: %w", modID, err)
	}
	return nil
}

// DeleteModMedia removes media from a mod by file name or link.
func (c *Client) DeleteModMedia(modID int64, fields url.Values) error {
	err := c.deleteForm(fmt.Sprintf("/games/%d/mods/%d/media", c.GameID, modID), fields)
	if err != nil {
		return fmt.Errorf("failed to delete media from mod %d: %w", modID, err)
	}
	return nil
}

// AddModTags attaches tags to a mod.
func (c *Client) AddModTags(modID int64, tags []string) error {
	fields := url.Values{}
	for i, tag := range tags {
		fields.Set(fmt.Sprintf("tags[%d]", i), tag)
	}
	err := c.do("POST", fmt.Sprintf("/games/%d/mods/%d/tags", c.GameID, modID),
		nil, strings.NewReader(fields.Encode()), "application/x-www-form-urlencoded", nil)
	if err != nil {
		return fmt.Errorf("failed to add tags to mod %d: %w", modID, err)
	}
	return nil
}

// DeleteModTags detaches tags from a mod.
func (c *Client) DeleteModTags(modID int64, tags []string) error {
	fields := url.Values{}
	for i, tag := range tags {
		fields.Set(fmt.Sprintf("tags[%d]", i), tag)
	}
	err := c.deleteForm(fmt.Sprintf("/games/%d/mods/%d/tags", c.GameID, modID), fields)
	if err != nil {
		return fmt.Errorf("failed to delete tags from mod %d: %w", modID, err)
	}
	return nil
}

// AddModKVPs attaches metadata key-value pairs to a mod.
func (c *Client) AddModKVPs(modID int64, kvps []MetadataKVP) error {
	fields := url.Values{}
	for i, kvp := range kvps {
		fields.Set(fmt.Sprintf("metadata[%d]", i), kvp.Key+":"+kvp.Value)
	}
	err := c.do("POST", fmt.Sprintf("/games/%d/mods/%d/metadatakvp", c.GameID, modID),
		nil, strings.NewReader(fields.Encode()), "application/x-www-form-urlencoded", nil)
	if err != nil {
		return fmt.Errorf("failed to add metadata to mod %d: %w", modID, err)
	}
	return nil
}

// DeleteModKVPs detaches metadata key-value pairs from a mod.
func (c *Client) DeleteModKVPs(modID int64, kvps []MetadataKVP) error {
	fields := url.Values{}
	for i, kvp := range kvps {
		fields.Set(fmt.Sprintf("metadata[%d]", i), kvp.Key+":"+kvp.Value)
	}
	err := c.deleteForm(fmt.Sprintf("/games/%d/mods/%d/metadatakvp", c.GameID, modID), fields)
	if err != nil {
		return fmt.Errorf("failed to delete metadata from mod %d: %w", modID, err)
	}
	return nil
}

// AddModfile uploads a new build archive for a mod.
func (c *Client) AddModfile(modID int64, fields map[string]string, archive FileField) (*Modfile, error) {
	var mf Modfile
	err := c.upload(fmt.Sprintf("/games/%d/mods/%d/files", c.GameID, modID), fields, []FileField{archive}, &mf)
	if err != nil {
		return nil, fmt.Errorf("failed to add modfile to mod %d: %w", modID, err)
	}
	return &mf, nil
}

// SubscribeToMod subscribes the authenticated user to a mod.
func (c *Client) SubscribeToMod(modID int64) error {
	err := c.do("POST", fmt.Sprintf("/games/%d/mods/%d/subscribe", c.GameID, modID), nil, nil, "", nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to mod %d: %w", modID, err)
	}
	return nil
}

// UnsubscribeFromMod removes the authenticated user's subscription.
func (c *Client) UnsubscribeFromMod(modID int64) error {
	err := c.do("DELETE", fmt.Sprintf("/games/%d/mods/%d/subscribe", c.GameID, modID), nil, nil, "", nil)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe from mod %d: %w", modID, err)
	}
	return nil
}

// DownloadImage fetches a remote image into memory.
func (c *Client) DownloadImage(imageURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Code: resp.StatusCode, Message: "image download failed"}
	}
	return io.ReadAll(resp.Body)
}

// DownloadTo streams a binary to dest, resuming from resumeFrom bytes when
// the server honors range requests. The caller owns sidecar naming; this
// only appends to (or truncates) the destination file.
func (c *Client) DownloadTo(downloadURL, dest string, resumeFrom int64) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	req, err := http.NewRequest("GET", downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/octet-stream")
	if resumeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case resp.StatusCode == http.StatusPartialContent && resumeFrom > 0:
		flags |= os.O_APPEND
		c.log.Debugw("Resuming download", zap.String("dest", dest), zap.Int64("from", resumeFrom))
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		flags |= os.O_TRUNC
	default:
		return parseErrorResponse(resp)
	}

	out, err := os.OpenFile(dest, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open download file %q: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		// Leave the partial file in place; a later attempt resumes it.
		return fmt.Errorf("failed to write download to %q: %w", dest, err)
	}
	return nil
}
