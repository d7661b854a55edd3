package ass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"unicode/utf8"
)

// Credential identifies a storage account: its base URL, name and API key.
// A Credential is immutable and safe to share between goroutines.
type Credential struct {
	baseURL     string
	accountName string
	apiKey      string
}

// accountFile is the on-disk account descriptor.
type accountFile struct {
	URL    *string `json:"url"`
	Name   *string `json:"name"`
	APIKey *string `json:"apikey"`
}

// NewCredential validates baseURL and returns a Credential.
// The base URL must be absolute and carry a host.
func NewCredential(baseURL, accountName, apiKey string) (Credential, error) {
	if _, err := parseAbsolute(baseURL); err != nil {
		return Credential{}, err
	}
	return Credential{
		baseURL:     baseURL,
		accountName: accountName,
		apiKey:      apiKey,
	}, nil
}

// LoadCredential reads a JSON account descriptor of the form
// {"url": "...", "name": "...", "apikey": "..."}.
func LoadCredential(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Credential{}, newError(KindNotFound, path, err)
		case errors.Is(err, fs.ErrPermission):
			return Credential{}, newError(KindPermissionDenied, path, err)
		default:
			return Credential{}, InvalidAccountFile(path, err)
		}
	}
	cred, err := ParseCredential(data)
	if err != nil {
		return Credential{}, InvalidAccountFile(path, err)
	}
	return cred, nil
}

// ParseCredential decodes an account descriptor from data.
func ParseCredential(data []byte) (Credential, error) {
	if !utf8.Valid(data) {
		return Credential{}, errors.New("account descriptor is not valid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var f accountFile
	if err := dec.Decode(&f); err != nil {
		return Credential{}, err
	}
	if dec.More() {
		return Credential{}, errors.New("unexpected data after account descriptor")
	}

	switch {
	case f.URL == nil:
		return Credential{}, errors.New(`missing field "url"`)
	case f.Name == nil:
		return Credential{}, errors.New(`missing field "name"`)
	case f.APIKey == nil:
		return Credential{}, errors.New(`missing field "apikey"`)
	}

	return NewCredential(*f.URL, *f.Name, *f.APIKey)
}

// SaveCredential writes c to path as an account descriptor readable by LoadCredential.
func SaveCredential(path string, c Credential) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode account descriptor: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write account descriptor: %w", err)
	}
	return nil
}

// MarshalJSON encodes the credential in account descriptor form.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountFile{
		URL:    &c.baseURL,
		Name:   &c.accountName,
		APIKey: &c.apiKey,
	})
}

// AccountName returns the account name.
func (c Credential) AccountName() string {
	return c.accountName
}

// APIKey returns the secret API key.
func (c Credential) APIKey() string {
	return c.apiKey
}

// RawBaseURL returns the base URL exactly as it was supplied.
func (c Credential) RawBaseURL() string {
	return c.baseURL
}

// BaseURL returns a fresh parsed copy of the base URL with an empty path
// normalized to "/".
func (c Credential) BaseURL() *url.URL {
	u, err := parseAbsolute(c.baseURL)
	if err != nil {
		// NewCredential already validated the URL; only a zero Credential gets here.
		return &url.URL{}
	}
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u
}

// BaseURLString returns the normalized base URL, e.g. "http://url" becomes "http://url/".
func (c Credential) BaseURLString() string {
	return c.BaseURL().String()
}

// String never includes the API key.
func (c Credential) String() string {
	return fmt.Sprintf("%s (account %s)", c.baseURL, c.accountName)
}

// LogValue keeps the API key out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", c.baseURL),
		slog.String("account", c.accountName),
	)
}

func parseAbsolute(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, InvalidURL(s, err)
	}
	if !u.IsAbs() {
		return nil, InvalidURL(s, errors.New("relative URL without a base"))
	}
	if u.Host == "" {
		return nil, InvalidURL(s, errors.New("URL has no host"))
	}
	return u, nil
}
