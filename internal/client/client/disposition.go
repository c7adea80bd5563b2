package client

import (
	"net/url"
	"regexp"
)

var filenameRe = regexp.MustCompile(`(?i)filename\*?=(?:UTF-8'')?["']?([^;"']+)["']?`)

// filenameFromDisposition extracts the served file name from a
// Content-Disposition header. The match is permissive: both filename= and
// filename*=UTF-8'' forms are accepted, quoted or not. Percent-encoding is
// decoded when valid. It returns "" when no name is present.
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	m := filenameRe.FindStringSubmatch(header)
	if len(m) < 2 || m[1] == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(m[1]); err == nil {
		return decoded
	}
	return m[1]
}
