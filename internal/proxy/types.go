package proxy

import "github.com/hyperifyio/piproxy/internal/extract"

// SearchRequest is the body of both search operations.
type SearchRequest struct {
	Query string `json:"query"`
}

// FetchRequest is the body of the fetch operation.
type FetchRequest struct {
	URL string `json:"url"`
}

// SearchTextResponse carries the search page as plain text.
type SearchTextResponse struct {
	SearchURL string `json:"search_url"`
	Text      string `json:"text"`
}

// SearchLinksResponse carries the ranked links of the search page.
type SearchLinksResponse struct {
	Query     string         `json:"query"`
	SearchURL string         `json:"search_url"`
	Results   []extract.Link `json:"results"`
}

// FetchResponse carries a fetched page as plain text.
type FetchResponse struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}
