package security

import "strings"

// Policy is the injected security collaborator StreamServiceCycle consults
// by (session type, client ip) before serving: an ordered deny-then-allow
// table. An empty table permits everything; a non-empty allow list permits
// only its entries. The wildcard entry "all" matches any address.
type Policy struct {
	AllowPlay    []string
	DenyPlay     []string
	AllowPublish []string
	DenyPublish  []string
}

// Allows reports whether a client at ip may run a publish (publish=true)
// or play session under this policy.
func (p *Policy) Allows(publish bool, ip string) bool {
	if p == nil {
		return true
	}
	deny, allow := p.DenyPlay, p.AllowPlay
	if publish {
		deny, allow = p.DenyPublish, p.AllowPublish
	}
	for _, pattern := range deny {
		if matchIP(ip, pattern) {
			return false
		}
	}
	if len(allow) == 0 {
		return true
	}
	for _, pattern := range allow {
		if matchIP(ip, pattern) {
			return true
		}
	}
	return false
}

func matchIP(ip, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	return pattern == "all" || pattern == ip
}
