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

package chttp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strings"
)

// ProxyAuth provides support for CouchDB's proxy authentication, as described
// at https://docs.couchdb.org/en/stable/api/server/authn.html#proxy-authentication.
// Headers may be used to override the default header names, keyed by the
// default name.
type ProxyAuth struct {
	Username string
	Secret   string
	Roles    []string
	Headers  http.Header

	transport http.RoundTripper
}

var _ Authenticator = &ProxyAuth{}

func (a *ProxyAuth) header(header string) string {
	if h := a.Headers.Get(header); h != "" {
		return http.CanonicalHeaderKey(h)
	}
	return header
}

// Token returns the X-Auth-CouchDB-Token value for the configured user, or
// "" if no secret is set.
// https://docs.couchdb.org/en/stable/config/auth.html#couch_httpd_auth/x_auth_token
func (a *ProxyAuth) Token() string {
	if a.Secret == "" {
		return ""
	}
	h := hmac.New(sha1.New, []byte(a.Secret))
	_, _ = h.Write([]byte(a.Username))
	return hex.EncodeToString(h.Sum(nil))
}

// RoundTrip fulfills the http.RoundTripper interface. It adds the proxy
// authentication headers to a copy of each outbound request.
func (a *ProxyAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	authReq := req.Clone(req.Context())
	if token := a.Token(); token != "" {
		authReq.Header.Set(a.header("X-Auth-CouchDB-Token"), token)
	}
	authReq.Header.Set(a.header("X-Auth-CouchDB-UserName"), a.Username)
	authReq.Header.Set(a.header("X-Auth-CouchDB-Roles"), strings.Join(a.Roles, ","))

	return a.transport.RoundTrip(authReq)
}

// Authenticate installs the proxy auth headers on the client's transport.
func (a *ProxyAuth) Authenticate(c *Client) error {
	a.transport = wrapTransport(c, a)
	return nil
}
