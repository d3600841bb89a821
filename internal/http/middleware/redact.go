// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the scrubbing rules applied by Logger() before request
// metadata reaches the logs. Viewer addresses, session tokens and user
// identifiers are personal data in a view-tracking service; request bodies
// are never logged at all.
package middleware

import (
	"net/http"
	"net/netip"
	"regexp"
	"strings"
)

// RedactOptions configures Logger() scrubbing.
//
// MaskHeaders adds header names (case-insensitive) whose values are replaced
// with "[REDACTED]", on top of the built-in set. AnonymizeIP truncates the
// logged client address (see AnonymizeIP).
type RedactOptions struct {
	MaskHeaders []string
	AnonymizeIP bool
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs inside ids never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// builtinMasked are always masked. Session tokens are the dedup identity of a
// browser, so they are treated like cookies.
var builtinMasked = []string{
	"authorization",
	"cookie",
	"set-cookie",
	"x-session-id",
	"x-user-id",
}

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	m := make(map[string]struct{}, len(builtinMasked)+len(opts.MaskHeaders))
	for _, h := range builtinMasked {
		m[h] = struct{}{}
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return &redactor{masked: m}
}

// scrub replaces ids, emails and phone numbers. UUIDs go first so the phone
// pattern cannot eat their digit groups.
func (r *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// headers returns a flattened, scrubbed copy of h.
func (r *redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// AnonymizeIP zeroes the host part of an address: the last octet of IPv4 and
// everything past /48 of IPv6. Unparseable input yields "".
func AnonymizeIP(addr string) string {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return ""
	}
	ip = ip.Unmap()
	bits := 48
	if ip.Is4() {
		bits = 24
	}
	p, err := ip.Prefix(bits)
	if err != nil {
		return ""
	}
	return p.Addr().String()
}
