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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/go-kivik/couchclient/chttp"
)

// Session is a connection to a CouchDB server.
type Session struct {
	client *chttp.Client
	logger hclog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger which receives a record of every interpreted
// response. By default nothing is logged.
func WithLogger(logger hclog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithUserAgent appends ua to the User-Agent header sent with each request.
// The client is shared by every session built on it, so ua is added once.
func WithUserAgent(ua string) SessionOption {
	return func(s *Session) {
		addUserAgent(s.client, ua)
	}
}

func addUserAgent(client *chttp.Client, ua string) {
	for _, existing := range client.UserAgents {
		if existing == ua {
			return
		}
	}
	client.UserAgents = append(client.UserAgents, ua)
}

// NewSession connects to the CouchDB server at dsn. Credentials included in
// dsn are used for cookie authentication.
func NewSession(dsn string, opts ...SessionOption) (*Session, error) {
	client, err := chttp.New(dsn)
	if err != nil {
		return nil, err
	}
	return NewSessionWithClient(client, opts...), nil
}

// NewSessionWithClient returns a Session which uses an existing chttp
// client.
func NewSessionWithClient(client *chttp.Client, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		logger: hclog.NewNullLogger(),
	}
	addUserAgent(s.client, fmt.Sprintf("couchdb/%s", Version))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying HTTP client.
func (s *Session) Client() *chttp.Client {
	return s.client
}

// Authenticate authenticates the session with a.
func (s *Session) Authenticate(a chttp.Authenticator) error {
	return s.client.Auth(a)
}

// do performs a request which CouchDB answers with a confirmation, and
// interprets the response. Server reported errors are returned in the
// Response, not as an error.
func (s *Session) do(ctx context.Context, method, path string, opts *chttp.Options) (*Response, error) {
	res, err := s.client.DoReq(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}
	resp, err := NewResponse(res)
	if err != nil {
		s.logger.Error("unusable response", "method", method, "path", path, "status", res.StatusCode, "error", err)
		return nil, err
	}
	s.logger.Debug("response", "method", resp.Method(), "path", resp.Path(), "status", resp.StatusCode(), "ok", resp.OK())
	if resp.ErrorID() != "" {
		s.logger.Warn("server error", "method", resp.Method(), "path", resp.Path(), "status", resp.StatusCode(),
			"error", resp.ErrorID(), "reason", resp.ErrorReason())
	}
	return resp, nil
}

// confirm is the same as do, but a server reported error is also returned as
// an error.
func (s *Session) confirm(ctx context.Context, method, path string, opts *chttp.Options) (*Response, error) {
	resp, err := s.do(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// AllDBs returns the names of all databases on the server.
func (s *Session) AllDBs(ctx context.Context) ([]string, error) {
	var allDBs []string
	_, err := s.client.DoJSON(ctx, http.MethodGet, "/_all_dbs", nil, &allDBs)
	return allDBs, err
}

// DBExists returns true if the database exists.
func (s *Session) DBExists(ctx context.Context, dbName string) (bool, error) {
	if dbName == "" {
		return false, missingArg("dbName")
	}
	_, err := s.client.DoError(ctx, http.MethodHead, url.PathEscape(dbName), nil)
	if StatusCode(err) == http.StatusNotFound {
		return false, nil
	}
	return err == nil, err
}

// CreateDB creates a database.
func (s *Session) CreateDB(ctx context.Context, dbName string) error {
	if dbName == "" {
		return missingArg("dbName")
	}
	_, err := s.confirm(ctx, http.MethodPut, url.PathEscape(dbName), nil)
	return err
}

// DeleteDB deletes a database.
func (s *Session) DeleteDB(ctx context.Context, dbName string) error {
	if dbName == "" {
		return missingArg("dbName")
	}
	_, err := s.confirm(ctx, http.MethodDelete, url.PathEscape(dbName), nil)
	return err
}

// DB returns a handle to the named database. No request is made.
func (s *Session) DB(dbName string) (*Database, error) {
	if dbName == "" {
		return nil, missingArg("dbName")
	}
	return &Database{
		session: s,
		dbName:  dbName,
	}, nil
}

// Ping queries the /_up endpoint, and returns true if there are no errors, or
// if a 400 (Bad Request) is returned, and the Server: header indicates a server
// version prior to 2.x.
func (s *Session) Ping(ctx context.Context) bool {
	resp, err := s.client.DoError(ctx, http.MethodHead, "/_up", nil)
	if StatusCode(err) == http.StatusBadRequest {
		return strings.HasPrefix(resp.Header.Get("Server"), "CouchDB/1.")
	}
	return err == nil
}

type statusCoder interface {
	StatusCode() int
}

// StatusCode returns the HTTP status code carried by err, 500 if err carries
// none, or 0 if err is nil.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var coder statusCoder
	if errors.As(err, &coder) {
		return coder.StatusCode()
	}
	return http.StatusInternalServerError
}
