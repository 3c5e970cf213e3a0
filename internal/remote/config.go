package remote

import (
	"net/url"
	"strings"
	"time"
)

// Endpoints holds the function URLs of the backend. An empty URL means the
// feature is not configured and callers fall back to the local store.
type Endpoints struct {
	Upload       string `yaml:"upload"`
	ListPending  string `yaml:"listPending"`
	Approve      string `yaml:"approve"`
	Delete       string `yaml:"delete"`
	ListApproved string `yaml:"listApproved"`
}

// Config describes how to reach the remote backend and its object storage.
type Config struct {
	BaseURL   string        `yaml:"baseURL"`
	APIKey    string        `yaml:"apiKey"`
	Bucket    string        `yaml:"bucket"`
	Endpoints Endpoints     `yaml:"endpoints"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HasREST reports whether the direct REST query can be issued.
func (c Config) HasREST() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// HasStorage reports whether public object URLs can be built.
func (c Config) HasStorage() bool {
	return c.BaseURL != "" && c.Bucket != ""
}

// Validate checks that configured URLs are absolute.
func (c Config) Validate() error {
	urls := map[string]string{
		"baseURL":                c.BaseURL,
		"endpoints.upload":       c.Endpoints.Upload,
		"endpoints.listPending":  c.Endpoints.ListPending,
		"endpoints.approve":      c.Endpoints.Approve,
		"endpoints.delete":       c.Endpoints.Delete,
		"endpoints.listApproved": c.Endpoints.ListApproved,
	}
	for name, raw := range urls {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return &ConfigError{Field: name, Value: raw}
		}
	}
	return nil
}

func (c Config) trimmedBase() string {
	return strings.TrimRight(c.BaseURL, "/")
}
