// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

/*
client.go - Emby/Jellyfin REST API client

One client serves both server variants. They expose the same Items
schema but differ in URL prefix and auth header:

  - emby:     /emby path prefix, X-Emby-Token header
  - jellyfin: no prefix, Authorization: MediaBrowser Token="..." header
*/

package mediaserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/medialetter/medialetter/internal/logging"
	"github.com/medialetter/medialetter/internal/models"
)

// Kind identifies the media-server variant.
type Kind string

// Supported server kinds.
const (
	KindEmby     Kind = "emby"
	KindJellyfin Kind = "jellyfin"
)

// recentItemFields is the field selection requested from the Items
// endpoint for newsletter aggregation.
const recentItemFields = "DateCreated,ParentId,SeriesName,SeasonName,IndexNumber,ParentIndexNumber," +
	"Overview,Genres,ProductionYear,CommunityRating,OfficialRating,ProviderIds"

// StatusError is returned when the server answers with a non-success
// HTTP status. Callers can inspect the status code to give targeted
// guidance (401 vs 404).
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Body)
}

// Client provides access to the Emby/Jellyfin REST API.
type Client struct {
	kind       Kind
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// SystemInfo represents server system information.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// itemsResponse is the envelope of the Items endpoint.
type itemsResponse struct {
	Items            []models.RawItem `json:"Items"`
	TotalRecordCount int              `json:"TotalRecordCount"`
}

// virtualFolder is one entry of the VirtualFolders endpoint.
type virtualFolder struct {
	Name      string   `json:"Name"`
	Locations []string `json:"Locations"`
}

// mediaFolder is one entry of the MediaFolders endpoint.
type mediaFolder struct {
	ID        string   `json:"Id"`
	Name      string   `json:"Name"`
	Locations []string `json:"Locations"`
}

// mediaFoldersResponse is the envelope of the MediaFolders endpoint.
type mediaFoldersResponse struct {
	Items []mediaFolder `json:"Items"`
}

// NewClient creates a new media-server API client.
func NewClient(kind Kind, baseURL, apiToken string) *Client {
	return &Client{
		kind:     kind,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiPath prefixes the endpoint for the emby variant.
func (c *Client) apiPath(endpoint string) string {
	if c.kind == KindEmby {
		return "/emby" + endpoint
	}
	return endpoint
}

// doRequest performs an HTTP GET against the server API with the
// kind-specific auth header.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	fullURL := c.baseURL + c.apiPath(endpoint)
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.kind == KindJellyfin {
		req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=%q", c.apiToken))
	} else {
		req.Header.Set("X-Emby-Token", c.apiToken)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// checkStatus converts a non-2xx response into a StatusError with a
// body excerpt for diagnostics.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return &StatusError{Status: resp.StatusCode}
	}
	return &StatusError{Status: resp.StatusCode, Body: string(body)}
}

// RecentItems lists movies and episodes created after the cutoff date,
// newest first, optionally restricted to the given library folder IDs.
//
// Filtering is defense in depth: the server is asked for items saved
// after the cutoff, and the client additionally drops virtual
// placeholder items and anything whose creation date (day granularity)
// is not strictly after the cutoff.
func (c *Client) RecentItems(ctx context.Context, folderIDs []string, cutoff time.Time) ([]models.RawItem, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "Movie,Episode")
	query.Set("Recursive", "true")
	query.Set("SortBy", "DateCreated")
	query.Set("SortOrder", "Descending")
	query.Set("Fields", recentItemFields)
	query.Set("MinDateLastSaved", cutoff.UTC().Format("2006-01-02T15:04:05.000Z"))
	if len(folderIDs) > 0 {
		query.Set("ParentIds", strings.Join(folderIDs, ","))
	}

	resp, err := c.doRequest(ctx, "/Items", query)
	if err != nil {
		return nil, fmt.Errorf("%s items request failed: %w", c.kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s items listing: %w", c.kind, err)
	}

	var payload itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s items: %w", c.kind, err)
	}

	recent := make([]models.RawItem, 0, len(payload.Items))
	for i := range payload.Items {
		item := &payload.Items[i]
		if item.IsVirtual() {
			logging.Debug().Str("item", item.Name).Msg("Skipping virtual placeholder item")
			continue
		}
		created, err := item.CreationDate()
		if err != nil {
			logging.Warn().Err(err).Str("item", item.Name).Msg("Skipping item with unparseable creation date")
			continue
		}
		if !created.After(cutoff) {
			continue
		}
		recent = append(recent, payload.Items[i])
	}

	return recent, nil
}

// ResolveFolderIDs resolves human-readable folder names to library
// IDs. Names match the basename of a library location; the matching
// library's ID is taken from the MediaFolders endpoint.
func (c *Client) ResolveFolderIDs(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			wanted[n] = true
		}
	}

	virtualFolders, err := c.virtualFolders(ctx)
	if err != nil {
		return nil, err
	}
	mediaFolders, err := c.mediaFolders(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]bool)
	for _, vf := range virtualFolders {
		for _, location := range vf.Locations {
			if !wanted[path.Base(strings.TrimSuffix(location, "/"))] {
				continue
			}
			for _, mf := range mediaFolders {
				if !containsLocation(mf.Locations, location) {
					continue
				}
				if !seen[mf.ID] {
					seen[mf.ID] = true
					ids = append(ids, mf.ID)
				}
				break
			}
		}
	}

	return ids, nil
}

// containsLocation reports whether any library location covers the
// virtual-folder location.
func containsLocation(locations []string, location string) bool {
	for _, loc := range locations {
		if strings.Contains(loc, location) || strings.Contains(location, loc) {
			return true
		}
	}
	return false
}

// LibraryFolderNames returns the basenames of all library locations
// known to the server.
func (c *Client) LibraryFolderNames(ctx context.Context) ([]string, error) {
	virtualFolders, err := c.virtualFolders(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, vf := range virtualFolders {
		for _, location := range vf.Locations {
			name := path.Base(strings.TrimSuffix(location, "/"))
			if name != "" && name != "." && name != "/" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// virtualFolders fetches the VirtualFolders endpoint.
func (c *Client) virtualFolders(ctx context.Context) ([]virtualFolder, error) {
	resp, err := c.doRequest(ctx, "/Library/VirtualFolders", nil)
	if err != nil {
		return nil, fmt.Errorf("%s virtual folders request failed: %w", c.kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s virtual folders: %w", c.kind, err)
	}

	var folders []virtualFolder
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		return nil, fmt.Errorf("failed to decode %s virtual folders: %w", c.kind, err)
	}
	return folders, nil
}

// mediaFolders fetches the MediaFolders endpoint.
func (c *Client) mediaFolders(ctx context.Context) ([]mediaFolder, error) {
	resp, err := c.doRequest(ctx, "/Library/MediaFolders", nil)
	if err != nil {
		return nil, fmt.Errorf("%s media folders request failed: %w", c.kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s media folders: %w", c.kind, err)
	}

	var payload mediaFoldersResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s media folders: %w", c.kind, err)
	}
	return payload.Items, nil
}

// Item fetches a single item by id.
func (c *Client) Item(ctx context.Context, id string) (*models.RawItem, error) {
	query := url.Values{}
	query.Set("Ids", id)
	query.Set("Fields", recentItemFields)

	resp, err := c.doRequest(ctx, "/Items", query)
	if err != nil {
		return nil, fmt.Errorf("%s item request failed: %w", c.kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s item lookup: %w", c.kind, err)
	}

	var payload itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s item: %w", c.kind, err)
	}
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("%s item %s not found", c.kind, id)
	}
	return &payload.Items[0], nil
}

// CountItems returns the total number of items of the given type under
// a library folder, used for the library-statistics footer.
func (c *Client) CountItems(ctx context.Context, folderID, itemType string) (int, error) {
	query := url.Values{}
	query.Set("ParentId", folderID)
	query.Set("IncludeItemTypes", itemType)
	query.Set("Recursive", "true")
	query.Set("Limit", "0")

	resp, err := c.doRequest(ctx, "/Items", query)
	if err != nil {
		return 0, fmt.Errorf("%s item count request failed: %w", c.kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return 0, fmt.Errorf("%s item count for folder %s: %w", c.kind, folderID, err)
	}

	var payload itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode %s item count: %w", c.kind, err)
	}
	return payload.TotalRecordCount, nil
}

// ImageURL builds the primary-poster URL for an item. The URL is
// embedded in the email as-is; the image itself is never fetched.
func (c *Client) ImageURL(itemID string) string {
	if itemID == "" {
		return ""
	}
	return c.baseURL + c.apiPath("/Items/"+itemID+"/Images/Primary")
}

// SystemInfo retrieves server system information.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	resp, err := c.doRequest(ctx, "/System/Info", nil)
	if err != nil {
		return nil, fmt.Errorf("%s system info request failed: %w", c.kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s system info: %w", c.kind, err)
	}

	var info SystemInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode %s system info: %w", c.kind, err)
	}
	return &info, nil
}

// Ping tests connectivity to the media server.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SystemInfo(ctx)
	return err
}
