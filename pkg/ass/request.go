package ass

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header names and fixed values sent with every authenticated request.
const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderACL           = "x-ass-acl"

	acceptJSON = "application/json"
	aclPublic  = "public"
)

// Param is a single query parameter. Order is significant.
type Param struct {
	Key   string
	Value string
}

// Headers returns the three authenticated headers for cred:
// Authorization, Accept and x-ass-acl. A new map is built on every call.
func Headers(cred Credential) (http.Header, error) {
	auth := "bearer " + cred.apiKey
	if !httpguts.ValidHeaderFieldValue(auth) {
		return nil, Transport(HeaderAuthorization, errors.New("api key contains bytes not allowed in a header value"))
	}

	h := make(http.Header, 3)
	h.Set(HeaderAuthorization, auth)
	h.Set(HeaderAccept, acceptJSON)
	h.Set(HeaderACL, aclPublic)
	return h, nil
}

// Resolve joins each segment onto base in turn using RFC 3986 reference
// resolution, so "files/" then "a.txt" yields ".../files/a.txt" while "files"
// then "a.txt" yields ".../a.txt". base is not modified.
func Resolve(base *url.URL, segments ...string) (*url.URL, error) {
	if base == nil {
		return nil, InvalidURL("", errors.New("nil base URL"))
	}
	cur := *base
	for _, seg := range segments {
		ref, err := url.Parse(seg)
		if err != nil {
			return nil, InvalidURL(seg, err)
		}
		cur = *cur.ResolveReference(ref)
	}
	return &cur, nil
}

// Endpoint resolves segments against the credential's normalized base URL.
func Endpoint(cred Credential, segments ...string) (*url.URL, error) {
	return Resolve(cred.BaseURL(), segments...)
}

// WithQuery returns a copy of u with params applied to its query. A key that
// already exists in u's query has its first occurrence overwritten; every other
// parameter is appended in the order given. Encoding follows
// application/x-www-form-urlencoded rules.
func WithQuery(u *url.URL, params ...Param) *url.URL {
	out := *u

	var pairs []string
	if u.RawQuery != "" {
		pairs = strings.Split(u.RawQuery, "&")
	}
	existing := len(pairs)

	for _, p := range params {
		enc := url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value)
		if i := indexOfKey(pairs[:existing], p.Key); i >= 0 {
			pairs[i] = enc
			continue
		}
		pairs = append(pairs, enc)
	}

	out.RawQuery = strings.Join(pairs, "&")
	return &out
}

func indexOfKey(pairs []string, key string) int {
	for i, pair := range pairs {
		k, _, _ := strings.Cut(pair, "=")
		if dk, err := url.QueryUnescape(k); err == nil && dk == key {
			return i
		}
	}
	return -1
}
