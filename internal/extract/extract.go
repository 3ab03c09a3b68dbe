package extract

import (
    "regexp"
    "strings"

    "github.com/PuerkitoBio/goquery"
    "golang.org/x/net/html"
)

// MaxTextChars caps the length of extracted text, counted in characters.
const MaxTextChars = 15000

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Text converts an HTML document to plain text. Script, style and noscript
// subtrees are dropped, every remaining text node is joined with a newline,
// runs of three or more newlines collapse to two, and the result is trimmed
// and cut to MaxTextChars.
func Text(input string) string {
    doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
    if err != nil {
        return ""
    }
    doc.Find("script, style, noscript").Remove()

    var parts []string
    for _, n := range doc.Nodes {
        collectStrings(n, &parts)
    }
    text := strings.Join(parts, "\n")
    text = blankRuns.ReplaceAllString(text, "\n\n")
    return Truncate(strings.TrimSpace(text), MaxTextChars)
}

// collectStrings appends the data of every text node under n in document order.
// Comments and doctype nodes carry no visible text and are skipped.
func collectStrings(n *html.Node, parts *[]string) {
    switch n.Type {
    case html.TextNode:
        *parts = append(*parts, n.Data)
        return
    case html.CommentNode, html.DoctypeNode:
        return
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectStrings(c, parts)
    }
}

// Truncate returns the first n characters of s. It does not look for word
// boundaries.
func Truncate(s string, n int) string {
    if n <= 0 {
        return ""
    }
    count := 0
    for i := range s {
        if count == n {
            return s[:i]
        }
        count++
    }
    return s
}
