package guard

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

// DefaultHosts are the hostnames trusted when no allowlist is configured.
var DefaultHosts = []string{"patient-innovation.com", "www.patient-innovation.com"}

var (
	// ErrInvalidScheme is returned for any URL whose scheme is not https.
	ErrInvalidScheme = errors.New("only https allowed")
	// ErrHostNotAllowed is returned when the URL host is missing, malformed
	// or not a member of the allowlist.
	ErrHostNotAllowed = errors.New("host not allowed")
)

// HostSet is an immutable set of lowercase hostnames without port.
type HostSet struct {
	hosts map[string]struct{}
}

// NewHostSet normalizes hosts (trim, lowercase, strip port) and drops blanks.
func NewHostSet(hosts ...string) HostSet {
	m := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = normalizeHost(h)
		if h == "" {
			continue
		}
		m[h] = struct{}{}
	}
	return HostSet{hosts: m}
}

// Contains reports whether host is in the set. Comparison is case-insensitive.
func (s HostSet) Contains(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	_, ok := s.hosts[host]
	return ok
}

// Len returns the number of hosts in the set.
func (s HostSet) Len() int { return len(s.hosts) }

// Hosts returns the members in sorted order.
func (s HostSet) Hosts() []string {
	out := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return ""
	}
	// Accept "host:port" entries in configuration.
	if u, err := url.Parse("//" + h); err == nil && u.Hostname() != "" {
		h = u.Hostname()
	}
	return h
}

// Guard admits URLs that use https and point at an allowed host.
type Guard struct {
	hosts HostSet
}

// New returns a Guard over the given hosts. With no hosts, DefaultHosts apply.
func New(hosts ...string) *Guard {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	return &Guard{hosts: NewHostSet(hosts...)}
}

// Hosts exposes the immutable allowlist.
func (g *Guard) Hosts() HostSet { return g.hosts }

// AssertAllowed returns nil when rawURL may be fetched. It never performs I/O.
func (g *Guard) AssertAllowed(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		if rawScheme(rawURL) != "https" {
			return ErrInvalidScheme
		}
		return ErrHostNotAllowed
	}
	if u.Scheme != "https" {
		return ErrInvalidScheme
	}
	if !g.hosts.Contains(u.Hostname()) {
		return ErrHostNotAllowed
	}
	return nil
}

// rawScheme extracts the scheme of a string url.Parse rejected.
func rawScheme(raw string) string {
	i := strings.IndexByte(raw, ':')
	if i <= 0 {
		return ""
	}
	scheme := raw[:i]
	for j, r := range scheme {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return ""
		}
	}
	return strings.ToLower(scheme)
}
