package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/karaokeforge/pipeline/domain/ports"
	"github.com/karaokeforge/pipeline/pkg/fuzzy"
)

// rankFloor and rankCap implement §4.7's simplified ranking contract: the
// minimum acceptable score and the maximum number of candidates returned.
// The source's "best minus second >= 10 -> top only" variant is a later
// revision superseded per this module's design decisions; this is the
// intentional simplification the specification adopts.
const (
	rankFloor = 50.0
	rankCap   = 7
)

// Config configures the Provider.
type Config struct {
	APIBaseURL string
	APIToken   string
	HTTPClient *http.Client
	Cache      SearchCache
}

// Provider implements ports.LyricProvider: search against a remote lyric
// metadata API (kept logically generic — the spec treats its wire
// protocol as an external boundary), then scrape and clean the winning
// page's lyric text.
type Provider struct {
	cfg Config
}

func New(cfg Config) *Provider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Cache == nil {
		cfg.Cache = NewInProcessCache(256)
	}
	return &Provider{cfg: cfg}
}

type searchHit struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
}

type searchResponse struct {
	Hits []searchHit `json:"hits"`
}

// Search queries the remote API with the cleaned title and ranks the hits
// against the cleaned title and artist using the composite WRatio score.
func (p *Provider) Search(ctx context.Context, title, artist string, limit int) ([]ports.LyricCandidate, error) {
	cleanTitle := fuzzy.CleanSearchTerm(title)
	cleanArtist := fuzzy.CleanSearchTerm(artist)
	if cleanTitle == "" {
		return nil, nil
	}

	cacheKey := cleanTitle + "|" + cleanArtist
	if cached, ok := p.cfg.Cache.GetSearch(ctx, cacheKey); ok {
		return toPortsCandidates(cached, limit), nil
	}

	hits, err := p.fetchSearchResults(ctx, cleanTitle)
	if err != nil {
		return nil, err
	}

	ranked := rank(hits, cleanTitle, cleanArtist)
	p.cfg.Cache.SetSearch(ctx, cacheKey, ranked)
	return toPortsCandidates(ranked, limit), nil
}

func (p *Provider) fetchSearchResults(ctx context.Context, query string) ([]searchHit, error) {
	if p.cfg.APIBaseURL == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/search?q=%s", p.cfg.APIBaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIToken)
	}

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Hits, nil
}

func rank(hits []searchHit, queryTitle, queryArtist string) []LyricCandidate {
	scored := make([]LyricCandidate, 0, len(hits))
	for _, h := range hits {
		titleScore := fuzzy.WRatio(h.Title, queryTitle)
		artistScore := fuzzy.WRatio(h.Artist, queryArtist)
		score := 0.7*titleScore + 0.3*artistScore
		scored = append(scored, LyricCandidate{
			ID: h.ID, Title: h.Title, Artist: h.Artist, URL: h.URL, Score: score,
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	var qualifying []LyricCandidate
	for _, c := range scored {
		if c.Score >= rankFloor {
			qualifying = append(qualifying, c)
		}
	}
	if len(qualifying) == 0 {
		if len(scored) > 0 {
			return scored[:1]
		}
		return nil
	}
	if len(qualifying) > rankCap {
		qualifying = qualifying[:rankCap]
	}
	return qualifying
}

func toPortsCandidates(in []LyricCandidate, limit int) []ports.LyricCandidate {
	out := make([]ports.LyricCandidate, 0, len(in))
	for i, c := range in {
		if limit > 0 && i >= limit {
			break
		}
		out = append(out, ports.LyricCandidate{ID: c.ID, Title: c.Title, Artist: c.Artist, URL: c.URL, Score: c.Score})
	}
	return out
}

// FetchLyrics scrapes and cleans the lyric text for candidateID, an
// opaque id returned by a prior Search call (a song URL in this
// provider's case).
func (p *Provider) FetchLyrics(ctx context.Context, candidateID string) (string, error) {
	if cached, ok := p.cfg.Cache.GetLyrics(ctx, candidateID); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidateID, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	text, err := ScrapeLyrics(resp.Body)
	if err != nil {
		return "", err
	}

	p.cfg.Cache.SetLyrics(ctx, candidateID, text)
	return text, nil
}
