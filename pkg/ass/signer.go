package ass

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// AccessTokenParam is the query parameter carrying the URL signature.
const AccessTokenParam = "accessToken"

// Signer produces deterministic HMAC-SHA256 signed URLs for one account.
//
// Signed URLs do not expire: signing the same URL twice yields the same link.
type Signer struct {
	cred Credential
}

// NewSigner returns a Signer for cred.
func NewSigner(cred Credential) *Signer {
	return &Signer{cred: cred}
}

// SignURL signs target with cred. See Signer.SignURL.
func SignURL(cred Credential, target string) (string, error) {
	return NewSigner(cred).SignURL(target)
}

// SignURL appends accessToken=<hex HMAC-SHA256(apikey, target)> to target.
//
// The target must contain the credential's base URL and account name as
// substrings, otherwise an error of kind KindURLDoesNotMatchAccount carrying
// target is returned. Existing query parameters are kept in order.
//
// Example:
//
//	url, err := signer.SignURL("http://url.com/name/image/2")
//	// Returns: http://url.com/name/image/2?accessToken=6ea029fc...
func (s *Signer) SignURL(target string) (string, error) {
	if !s.Owns(target) {
		return "", URLDoesNotMatchAccount(target)
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", InvalidURL(target, err)
	}

	signed := WithQuery(u, Param{Key: AccessTokenParam, Value: s.Token(target)})
	return signed.String(), nil
}

// Owns reports whether target textually contains the raw base URL and the account name.
func (s *Signer) Owns(target string) bool {
	return strings.Contains(target, s.cred.baseURL) && strings.Contains(target, s.cred.accountName)
}

// Token returns the lower-case hex HMAC-SHA256 of target keyed by the API key.
// No ownership check is made.
func (s *Signer) Token(target string) string {
	h := hmac.New(sha256.New, []byte(s.cred.apiKey))
	h.Write([]byte(target))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks that signedURL ends with an accessToken produced by this signer
// for the rest of the URL. Only URLs already in canonical form (no fragment,
// nothing re-escaped by url.URL.String) round-trip through SignURL and Verify.
func (s *Signer) Verify(signedURL string) error {
	target, token, ok := splitAccessToken(signedURL)
	if !ok {
		return ErrMissingSignature
	}
	expected := s.Token(target)

	// Constant-time comparison
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// splitAccessToken removes a trailing accessToken parameter, returning the
// unsigned URL and the token.
func splitAccessToken(signedURL string) (string, string, bool) {
	idx := strings.LastIndex(signedURL, AccessTokenParam+"=")
	if idx <= 0 {
		return "", "", false
	}
	sep := signedURL[idx-1]
	if sep != '?' && sep != '&' {
		return "", "", false
	}

	token := signedURL[idx+len(AccessTokenParam)+1:]
	if token == "" || strings.ContainsAny(token, "&#") {
		return "", "", false
	}

	return signedURL[:idx-1], token, true
}
