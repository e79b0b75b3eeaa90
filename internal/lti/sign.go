package lti

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// Sign computes the OAuth 1.0a HMAC-SHA1 signature for a launch request.
// params holds every form parameter except oauth_signature itself.
// The LTI 1.1 flow has no token secret, so the signing key is the
// encoded consumer secret followed by a bare '&'.
func Sign(method, targetURL string, params url.Values, secret string) string {
	base := signatureBase(method, targetURL, params)
	mac := hmac.New(sha1.New, []byte(percentEncode(secret)+"&"))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signatureBase builds the OAuth signature base string:
// METHOD & encoded-base-URL & encoded-sorted-parameter-string.
func signatureBase(method, targetURL string, params url.Values) string {
	type pair struct{ k, v string }
	var pairs []pair
	for k, vs := range params {
		if k == "oauth_signature" {
			continue
		}
		for _, v := range vs {
			pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p.k)
		sb.WriteByte('=')
		sb.WriteString(p.v)
	}

	return strings.ToUpper(method) + "&" +
		percentEncode(baseURL(targetURL)) + "&" +
		percentEncode(sb.String())
}

// baseURL strips the query and fragment; scheme and host are lowercased
// per RFC 5849 §3.4.1.2.
func baseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// percentEncode implements RFC 3986 encoding as required by OAuth:
// unreserved characters pass through, everything else becomes %XX.
func percentEncode(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~' {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		}
	}
	return sb.String()
}

const hexDigits = "0123456789ABCDEF"
