package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/piproxy/internal/extract"
	"github.com/hyperifyio/piproxy/internal/fetch"
)

// DefaultSearchBase is the site search endpoint; the query goes into the "s" parameter.
const DefaultSearchBase = "https://patient-innovation.com/"

// Fetcher performs the single outbound GET for an admitted URL.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Page, error)
}

// Admitter validates a URL before any network call.
type Admitter interface {
	AssertAllowed(rawURL string) error
}

// Service runs admission, fetch and extraction for each operation. It holds
// no per-request state and is safe for concurrent use.
type Service struct {
	Guard      Admitter
	Fetcher    Fetcher
	Links      extract.LinkExtractor
	SearchBase string
}

// SearchURL builds the site search URL for query with the query percent-encoded.
func (s *Service) SearchURL(query string) string {
	base := s.SearchBase
	if base == "" {
		base = DefaultSearchBase
	}
	return base + "?" + url.Values{"s": {query}}.Encode()
}

// Search fetches the site search page for the query and returns its text.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchTextResponse, error) {
	target := s.SearchURL(req.Query)
	page, err := s.get(ctx, target)
	if err != nil {
		return SearchTextResponse{}, err
	}
	return SearchTextResponse{SearchURL: target, Text: extract.Text(page.Body)}, nil
}

// SearchLinks fetches the site search page for the query and returns the
// ranked same-site links found on it.
func (s *Service) SearchLinks(ctx context.Context, req SearchRequest) (SearchLinksResponse, error) {
	target := s.SearchURL(req.Query)
	page, err := s.get(ctx, target)
	if err != nil {
		return SearchLinksResponse{}, err
	}
	links := s.Links.Links(page.Body)
	log.Debug().Str("query", req.Query).Int("links", len(links)).Msg("search links extracted")
	return SearchLinksResponse{Query: req.Query, SearchURL: target, Results: links}, nil
}

// Fetch retrieves an arbitrary allowed URL and returns its text.
func (s *Service) Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error) {
	page, err := s.get(ctx, req.URL)
	if err != nil {
		return FetchResponse{}, err
	}
	return FetchResponse{URL: req.URL, Text: extract.Text(page.Body)}, nil
}

// get admits target and fetches it. Admission always happens first.
func (s *Service) get(ctx context.Context, target string) (fetch.Page, error) {
	if err := s.Guard.AssertAllowed(target); err != nil {
		log.Debug().Str("url", target).Err(err).Msg("url rejected")
		return fetch.Page{}, err
	}
	start := time.Now()
	page, err := s.Fetcher.Get(ctx, target)
	if err != nil {
		if !errors.Is(err, fetch.ErrUpstream) {
			err = fmt.Errorf("%w: %v", fetch.ErrUpstream, err)
		}
		log.Warn().Str("url", target).Dur("took", time.Since(start)).Err(err).Msg("upstream fetch failed")
		return fetch.Page{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	log.Debug().Str("url", target).Int("status", page.StatusCode).Int("bytes", len(page.Body)).Dur("took", time.Since(start)).Msg("upstream fetched")
	return page, nil
}
