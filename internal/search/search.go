// Package search finds podcast feeds for night-mode packs. It queries the
// iTunes directory and the Radio France Aerion index in parallel and
// merges the answers into one deduplicated list.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultITunesURL   = "https://itunes.apple.com/search"
	defaultAerionURL   = "https://radio-france-rss.aerion.workers.dev/search"
	defaultLimit       = 15
	defaultHTTPTimeout = 5 * time.Second
)

// Result sources.
const (
	SourceITunes = "itunes"
	SourceAerion = "aerion"
)

// Config describes the search client configuration. Zero values fall back
// to the public endpoints.
type Config struct {
	ITunesURL  string
	AerionURL  string
	Limit      int
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Result is one podcast feed candidate.
type Result struct {
	Title       string
	Author      string
	FeedURL     string
	ImageURL    string
	Source      string
	Description string
}

// Client queries the podcast directories.
type Client struct {
	itunesURL *url.URL
	aerionURL *url.URL
	limit     int
	http      *http.Client
	logger    *log.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	itunes := strings.TrimSpace(cfg.ITunesURL)
	if itunes == "" {
		itunes = defaultITunesURL
	}
	itunesURL, err := url.Parse(itunes)
	if err != nil {
		return nil, fmt.Errorf("search: parse itunes url: %w", err)
	}

	aerion := strings.TrimSpace(cfg.AerionURL)
	if aerion == "" {
		aerion = defaultAerionURL
	}
	aerionURL, err := url.Parse(aerion)
	if err != nil {
		return nil, fmt.Errorf("search: parse aerion url: %w", err)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		itunesURL: itunesURL,
		aerionURL: aerionURL,
		limit:     limit,
		http:      client,
		logger:    logger,
	}, nil
}

// Search queries both directories in parallel. One source failing is
// tolerated and logged; the merged list then carries the other source
// alone. Both failing is an error.
//
// Duplicates are folded by feed URL with the Aerion entry winning, and
// Aerion results lead the list: for Radio France content its own index
// has the better metadata.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c == nil {
		return nil, errors.New("search: client is nil")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search: empty query")
	}

	var (
		wg            sync.WaitGroup
		itunesResults []Result
		aerionResults []Result
		itunesErr     error
		aerionErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		itunesResults, itunesErr = c.searchITunes(ctx, query)
	}()
	go func() {
		defer wg.Done()
		aerionResults, aerionErr = c.searchAerion(ctx, query)
	}()
	wg.Wait()

	if itunesErr != nil && aerionErr != nil {
		return nil, fmt.Errorf("search: all sources failed: %v; %v", aerionErr, itunesErr)
	}
	if itunesErr != nil {
		c.logger.Warn("search source failed", "source", SourceITunes, "error", itunesErr)
	}
	if aerionErr != nil {
		c.logger.Warn("search source failed", "source", SourceAerion, "error", aerionErr)
	}

	return merge(aerionResults, itunesResults), nil
}

// merge concatenates the per-source lists and drops later entries whose
// feed URL was already taken. Aerion goes first, so it wins collisions.
func merge(aerion, itunes []Result) []Result {
	merged := make([]Result, 0, len(aerion)+len(itunes))
	seen := make(map[string]bool, len(aerion)+len(itunes))
	for _, list := range [][]Result{aerion, itunes} {
		for _, r := range list {
			if seen[r.FeedURL] {
				continue
			}
			seen[r.FeedURL] = true
			merged = append(merged, r)
		}
	}
	return merged
}

func (c *Client) searchITunes(ctx context.Context, query string) ([]Result, error) {
	endpoint := *c.itunesURL
	params := url.Values{}
	params.Set("term", query)
	params.Set("entity", "podcast")
	params.Set("limit", strconv.Itoa(c.limit))
	endpoint.RawQuery = params.Encode()

	var payload struct {
		Results []struct {
			CollectionName string `json:"collectionName"`
			ArtistName     string `json:"artistName"`
			FeedURL        string `json:"feedUrl"`
			ArtworkURL600  string `json:"artworkUrl600"`
			ArtworkURL100  string `json:"artworkUrl100"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, &endpoint, &payload); err != nil {
		return nil, fmt.Errorf("itunes: %w", err)
	}

	results := make([]Result, 0, len(payload.Results))
	for _, item := range payload.Results {
		if item.FeedURL == "" {
			continue
		}
		results = append(results, Result{
			Title:    firstNonEmpty(item.CollectionName, "Unknown"),
			Author:   item.ArtistName,
			FeedURL:  item.FeedURL,
			ImageURL: firstNonEmpty(item.ArtworkURL600, item.ArtworkURL100),
			Source:   SourceITunes,
		})
	}
	return results, nil
}

// aerionItem covers the field spellings the worker has been seen to use.
type aerionItem struct {
	FeedURL        string `json:"feedUrl"`
	URL            string `json:"url"`
	RSS            string `json:"rss"`
	Title          string `json:"title"`
	CollectionName string `json:"collectionName"`
	Author         string `json:"author"`
	Image          string `json:"image"`
	ArtworkURL     string `json:"artworkUrl"`
	Description    string `json:"description"`
}

func (c *Client) searchAerion(ctx context.Context, query string) ([]Result, error) {
	endpoint := *c.aerionURL
	params := url.Values{}
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	var payload json.RawMessage
	if err := c.getJSON(ctx, &endpoint, &payload); err != nil {
		return nil, fmt.Errorf("aerion: %w", err)
	}

	items, err := decodeAerion(payload)
	if err != nil {
		return nil, fmt.Errorf("aerion: %w", err)
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		feedURL := firstNonEmpty(item.FeedURL, item.URL, item.RSS)
		if feedURL == "" {
			continue
		}
		results = append(results, Result{
			Title:       firstNonEmpty(item.Title, item.CollectionName, "Unknown"),
			Author:      firstNonEmpty(item.Author, "Radio France"),
			FeedURL:     feedURL,
			ImageURL:    firstNonEmpty(item.Image, item.ArtworkURL),
			Source:      SourceAerion,
			Description: item.Description,
		})
	}
	return results, nil
}

// decodeAerion accepts either a bare array or an object wrapping one under
// "results". The worker's response shape is not pinned down anywhere.
func decodeAerion(data []byte) ([]aerionItem, error) {
	var items []aerionItem
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Results []aerionItem `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	return wrapped.Results, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
