// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchdb

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	kivik "github.com/go-kivik/kivik/v4"

	"github.com/go-kivik/couchclient/chttp"
)

// Authentication methods understood by AuthConfig.
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthCookie = "cookie"
	AuthProxy  = "proxy"
)

// Config describes how to connect to a CouchDB server.
type Config struct {
	// DSN is the server URL, such as http://localhost:5984/. Credentials in
	// the URL enable cookie auth, unless Auth.Method is set, in which case
	// they are ignored.
	DSN string `yaml:"dsn"`

	Auth AuthConfig `yaml:"auth"`

	// TLS is optional.
	TLS *chttp.TLSConfig `yaml:"tls"`

	// Timeout bounds each request, including reading the response body.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is appended to the default User-Agent header.
	UserAgent string `yaml:"user_agent"`
}

// AuthConfig selects an authentication method.
type AuthConfig struct {
	// Method is one of "none", "basic", "cookie" or "proxy". The empty string
	// means "none".
	Method   string   `yaml:"method"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Secret   string   `yaml:"secret"`
	Roles    []string `yaml:"roles"`
}

// Authenticator returns the chttp.Authenticator for the configured method,
// or nil for no authentication.
func (c *AuthConfig) Authenticator() (chttp.Authenticator, error) {
	switch strings.ToLower(c.Method) {
	case "", AuthNone:
		return nil, nil
	case AuthBasic:
		return &chttp.BasicAuth{Username: c.Username, Password: c.Password}, nil
	case AuthCookie:
		return &chttp.CookieAuth{Username: c.Username, Password: c.Password}, nil
	case AuthProxy:
		return &chttp.ProxyAuth{Username: c.Username, Secret: c.Secret, Roles: c.Roles}, nil
	}
	return nil, &kivik.Error{Status: http.StatusBadRequest, Err: fmt.Errorf("couchdb: unknown auth method '%s'", c.Method)}
}

// NewSessionFromConfig connects to the server described by cfg.
func NewSessionFromConfig(cfg *Config, opts ...SessionOption) (*Session, error) {
	auth, err := cfg.Auth.Authenticator()
	if err != nil {
		return nil, err
	}
	httpClient, err := chttp.NewHTTPClient(cfg.TLS, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if cfg.Auth.Method != "" {
		dsn = stripCredentials(dsn)
	}
	client, err := chttp.NewWithClient(httpClient, dsn)
	if err != nil {
		return nil, err
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return nil, err
		}
	}
	if cfg.UserAgent != "" {
		opts = append([]SessionOption{WithUserAgent(cfg.UserAgent)}, opts...)
	}
	return NewSessionWithClient(client, opts...), nil
}

// stripCredentials removes any userinfo from dsn. A dsn which does not parse
// is returned unchanged, for chttp to report.
func stripCredentials(dsn string) string {
	if dsn == "" {
		return dsn
	}
	if !strings.HasPrefix(dsn, "http://") && !strings.HasPrefix(dsn, "https://") {
		dsn = "http://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	u.User = nil
	return u.String()
}
