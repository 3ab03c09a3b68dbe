package extract

import (
    "slices"
    "strings"
    "unicode/utf8"

    "github.com/PuerkitoBio/goquery"
)

// Defaults for link-list extraction against the proxied site.
const (
    DefaultOrigin        = "https://patient-innovation.com"
    DefaultRankKeyword   = "innovation"
    DefaultMinTitleChars = 10
    DefaultMaxLinks      = 15
)

// DefaultOrigins are the absolute URL prefixes accepted as on-site links.
var DefaultOrigins = []string{"https://patient-innovation.com", "https://www.patient-innovation.com"}

// Link is a titled same-site link found in a page.
type Link struct {
    Title string `json:"title"`
    URL   string `json:"url"`
}

// LinkExtractor turns anchors into a deduplicated, ranked list of same-site
// links. Zero fields take the package defaults.
type LinkExtractor struct {
    // Origin is prepended to root-relative hrefs.
    Origin string
    // Origins are the absolute prefixes kept as-is.
    Origins []string
    // RankKeyword moves links whose lowercased URL contains it to the front.
    RankKeyword   string
    MinTitleChars int
    MaxLinks      int
}

func (e LinkExtractor) withDefaults() LinkExtractor {
    if e.Origin == "" {
        e.Origin = DefaultOrigin
    }
    if len(e.Origins) == 0 {
        e.Origins = DefaultOrigins
    }
    if e.RankKeyword == "" {
        e.RankKeyword = DefaultRankKeyword
    }
    if e.MinTitleChars <= 0 {
        e.MinTitleChars = DefaultMinTitleChars
    }
    if e.MaxLinks <= 0 {
        e.MaxLinks = DefaultMaxLinks
    }
    return e
}

// Links extracts at most MaxLinks links from input. Links are unique by URL,
// the first occurrence wins, and keyword matches precede the rest with
// document order kept inside each group.
func (e LinkExtractor) Links(input string) []Link {
    e = e.withDefaults()
    doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
    if err != nil {
        return nil
    }

    seen := make(map[string]struct{})
    out := make([]Link, 0)
    doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
        href, _ := s.Attr("href")
        if href == "" {
            return
        }
        full, ok := e.normalize(href)
        if !ok {
            return
        }
        if _, dup := seen[full]; dup {
            return
        }
        seen[full] = struct{}{}

        title := strings.Join(strings.Fields(s.Text()), " ")
        if utf8.RuneCountInString(title) < e.MinTitleChars {
            return
        }
        out = append(out, Link{Title: title, URL: full})
    })

    keyword := strings.ToLower(e.RankKeyword)
    slices.SortStableFunc(out, func(a, b Link) int {
        return rank(a.URL, keyword) - rank(b.URL, keyword)
    })
    if len(out) > e.MaxLinks {
        out = out[:e.MaxLinks]
    }
    return out
}

// normalize resolves root-relative hrefs against Origin and keeps absolute
// hrefs on one of Origins. Everything else is off-site.
func (e LinkExtractor) normalize(href string) (string, bool) {
    if strings.HasPrefix(href, "/") {
        return e.Origin + href, true
    }
    for _, o := range e.Origins {
        if hasOriginPrefix(href, o) {
            return href, true
        }
    }
    return "", false
}

// hasOriginPrefix requires the origin to end at a path, query or fragment
// boundary so look-alike hosts do not pass.
func hasOriginPrefix(href, origin string) bool {
    if !strings.HasPrefix(href, origin) {
        return false
    }
    if len(href) == len(origin) {
        return true
    }
    switch href[len(origin)] {
    case '/', '?', '#':
        return true
    }
    return false
}

func rank(url, keyword string) int {
    if strings.Contains(strings.ToLower(url), keyword) {
        return 0
    }
    return 1
}
