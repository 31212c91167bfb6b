// Package security implements the per-vhost referer allow lists
// (refer_all/refer_play/refer_publish), matched against the connecting
// client's pageUrl host, and the injected IP security policy.
package security

import (
	"net/url"
	"strings"
)

// RefererChecker enforces a per-vhost referer allow list.
type RefererChecker struct{}

func NewRefererChecker() *RefererChecker { return &RefererChecker{} }

// Allow reports whether pageURL's host matches one of allowed's entries,
// either exactly or as a subdomain of it (".example.com" matches
// "cdn.example.com"). An empty allowed list
// always permits.
func (c *RefererChecker) Allow(pageURL string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host := hostOf(pageURL)
	if host == "" {
		return false
	}
	for _, pattern := range allowed {
		if matchHost(host, pattern) {
			return true
		}
	}
	return false
}

// AllowPlay checks refer_all then refer_play.
func (c *RefererChecker) AllowPlay(pageURL string, referAll, referPlay []string) bool {
	if len(referAll) > 0 && c.Allow(pageURL, referAll) {
		return true
	}
	if len(referPlay) > 0 {
		return c.Allow(pageURL, referPlay)
	}
	return len(referAll) == 0
}

// AllowPublish checks refer_all then refer_publish.
func (c *RefererChecker) AllowPublish(pageURL string, referAll, referPublish []string) bool {
	if len(referAll) > 0 && c.Allow(pageURL, referAll) {
		return true
	}
	if len(referPublish) > 0 {
		return c.Allow(pageURL, referPublish)
	}
	return len(referAll) == 0
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		// pageUrl is sometimes sent as a bare host:port, not a full URL.
		return strings.ToLower(strings.SplitN(pageURL, "/", 2)[0])
	}
	return strings.ToLower(u.Hostname())
}

func matchHost(host, pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if pattern == host {
		return true
	}
	return strings.HasSuffix(host, "."+strings.TrimPrefix(pattern, "."))
}
