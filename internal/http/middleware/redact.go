package middleware

import (
	"regexp"
	"strings"
)

// Contact addresses, subject identifiers and case IDs travel in query
// strings (GET /cases?contact=...), so access logs scrub them.
//
// UUIDs are replaced before phone numbers: the phone pattern would otherwise
// match digit runs inside a UUID.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// alwaysMasked headers are replaced wholesale in logs.
var alwaysMasked = []string{"authorization", "cookie", "set-cookie"}

// Redact scrubs identifiers from s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// headerMask builds the case-insensitive set of header names to mask.
func headerMask(extra []string) map[string]struct{} {
	m := make(map[string]struct{}, len(alwaysMasked)+len(extra))
	for _, h := range append(alwaysMasked, extra...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return m
}

// redactHeaders flattens h with masked names replaced and the rest scrubbed.
func redactHeaders(h map[string][]string, mask map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = Redact(strings.Join(vv, ", "))
	}
	return out
}
