package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/piproxy/internal/fetch"
	"github.com/hyperifyio/piproxy/internal/guard"
)

// stubFetcher serves canned pages and records requested URLs.
type stubFetcher struct {
	pages map[string]fetch.Page
	err   error
	calls []string
}

func (f *stubFetcher) Get(_ context.Context, url string) (fetch.Page, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return fetch.Page{}, f.err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return fetch.Page{}, errors.New("no such page")
}

func newService(f Fetcher) *Service {
	return &Service{Guard: guard.New(), Fetcher: f}
}

func TestSearchURL_EncodesQuery(t *testing.T) {
	s := newService(&stubFetcher{})
	cases := map[string]string{
		"diabetes":           "https://patient-innovation.com/?s=diabetes",
		"wheel chair":        "https://patient-innovation.com/?s=wheel+chair",
		"a&b=c#frag":         "https://patient-innovation.com/?s=a%26b%3Dc%23frag",
		"x@evil.net/../path": "https://patient-innovation.com/?s=x%40evil.net%2F..%2Fpath",
	}
	for q, want := range cases {
		if got := s.SearchURL(q); got != want {
			t.Fatalf("SearchURL(%q) = %q, want %q", q, got, want)
		}
	}
}

func TestSearch_ReturnsText(t *testing.T) {
	target := "https://patient-innovation.com/?s=diabetes"
	f := &stubFetcher{pages: map[string]fetch.Page{
		target: {URL: target, StatusCode: 200, Body: "<p>Insulin pump hack</p><script>x()</script>"},
	}}
	s := newService(f)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "diabetes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SearchURL != target || resp.Text != "Insulin pump hack" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSearchLinks_ReturnsRankedLinks(t *testing.T) {
	target := "https://patient-innovation.com/?s=idea"
	body := `<a href="/innovations/123">A Great New Treatment Idea</a><a href="/x">short</a><a href="https://other.example/y">Off-site link title</a>`
	f := &stubFetcher{pages: map[string]fetch.Page{target: {StatusCode: 200, Body: body}}}
	s := newService(f)
	resp, err := s.SearchLinks(context.Background(), SearchRequest{Query: "idea"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Query != "idea" || resp.SearchURL != target {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://patient-innovation.com/innovations/123" || resp.Results[0].Title != "A Great New Treatment Idea" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestFetch_ReturnsText(t *testing.T) {
	target := "https://www.patient-innovation.com/innovations/1"
	f := &stubFetcher{pages: map[string]fetch.Page{target: {StatusCode: 200, Body: "<h1>Title</h1><p>Body</p>"}}}
	s := newService(f)
	resp, err := s.Fetch(context.Background(), FetchRequest{URL: target})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.URL != target || resp.Text != "Title\nBody" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFetch_RejectedBeforeNetwork(t *testing.T) {
	cases := []struct {
		url  string
		want error
	}{
		{"http://patient-innovation.com/", guard.ErrInvalidScheme},
		{"https://example.com/", guard.ErrHostNotAllowed},
		{"not a url", guard.ErrInvalidScheme},
	}
	for _, tc := range cases {
		f := &stubFetcher{}
		s := newService(f)
		_, err := s.Fetch(context.Background(), FetchRequest{URL: tc.url})
		if !errors.Is(err, tc.want) {
			t.Fatalf("Fetch(%q) error = %v, want %v", tc.url, err, tc.want)
		}
		if len(f.calls) != 0 {
			t.Fatalf("Fetch(%q) issued network calls: %v", tc.url, f.calls)
		}
	}
}

func TestUpstreamFailuresMapToErrUpstream(t *testing.T) {
	f := &stubFetcher{err: errors.New("connection refused")}
	s := newService(f)
	if _, err := s.Search(context.Background(), SearchRequest{Query: "q"}); !errors.Is(err, fetch.ErrUpstream) {
		t.Fatalf("Search error = %v, want ErrUpstream", err)
	}
	if _, err := s.SearchLinks(context.Background(), SearchRequest{Query: "q"}); !errors.Is(err, fetch.ErrUpstream) {
		t.Fatalf("SearchLinks error = %v, want ErrUpstream", err)
	}
	if _, err := s.Fetch(context.Background(), FetchRequest{URL: "https://patient-innovation.com/"}); !errors.Is(err, fetch.ErrUpstream) {
		t.Fatalf("Fetch error = %v, want ErrUpstream", err)
	}
}

// End to end through the real client: a 404 upstream fails every operation
// regardless of body content.
func TestUpstream404_WithRealClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<a href="/innovations/1">A perfectly fine innovation</a>`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "https://")
	s := &Service{
		Guard:      guard.New(host),
		Fetcher:    &fetch.Client{HTTPClient: srv.Client(), PerRequestTimeout: 2 * time.Second},
		SearchBase: srv.URL + "/",
	}
	if _, err := s.Search(context.Background(), SearchRequest{Query: "q"}); !errors.Is(err, fetch.ErrUpstream) {
		t.Fatalf("Search error = %v, want ErrUpstream", err)
	}
	if _, err := s.SearchLinks(context.Background(), SearchRequest{Query: "q"}); !errors.Is(err, fetch.ErrUpstream) {
		t.Fatalf("SearchLinks error = %v, want ErrUpstream", err)
	}
	if _, err := s.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/page"}); !errors.Is(err, fetch.ErrUpstream) {
		t.Fatalf("Fetch error = %v, want ErrUpstream", err)
	}
}
