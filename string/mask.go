// Package string holds helpers for rendering sensitive values in logs.
package string

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Mask will mask a string by replacing the second half with asterisks.
func Mask(s string) string {
	l := len(s)
	if l == 0 {
		return s
	}
	if l == 1 {
		return "*"
	}
	h := l / 2
	return s[0:h] + strings.Repeat("*", l-h)
}

// MaskURL returns u with user info and query values masked. Query parameters
// named in keep are left readable. The path is not masked.
func MaskURL(u *url.URL, keep ...string) string {
	if u == nil {
		return ""
	}
	var str strings.Builder
	if u.Scheme != "" {
		str.WriteString(u.Scheme)
		str.WriteString("://")
	}
	if u.User != nil {
		str.WriteString(Mask(u.User.Username()))
		if pass, ok := u.User.Password(); ok {
			str.WriteString(":")
			str.WriteString(Mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	str.WriteString(u.Path)
	var qs []string
	for k, v := range u.Query() {
		val := strings.Join(v, ",")
		if !contains(keep, k) {
			val = Mask(val)
		}
		qs = append(qs, k+"="+val)
	}
	sort.Strings(qs)
	if len(qs) > 0 {
		str.WriteString("?")
		str.WriteString(strings.Join(qs, "&"))
	}
	return str.String()
}

var sensitiveHeaders = []string{
	"Authorization",
	"Cookie",
	"Proxy-Authorization",
	"Set-Cookie",
	"X-Api-Key",
}

// MaskHeader returns a flattened copy of h suitable for logging, with the
// values of credential-bearing headers masked.
func MaskHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		val := strings.Join(v, ", ")
		if contains(sensitiveHeaders, http.CanonicalHeaderKey(k)) {
			val = Mask(val)
		}
		out[k] = val
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MaskedString is a string that masks its value when formatted, so secrets
// loaded from configuration do not leak through %v or %s.
type MaskedString string

// Text returns the unmasked text value.
func (ms MaskedString) Text() string {
	return string(ms)
}

// String implements fmt.Stringer to return a masked representation.
func (ms MaskedString) String() string {
	return Mask(string(ms))
}

// GoString implements fmt.GoStringer so %#v also prints masked.
func (ms MaskedString) GoString() string {
	return ms.String()
}

// MarshalJSON implements json.Marshaler for real (unmasked) JSON output.
func (ms MaskedString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(ms))
}
