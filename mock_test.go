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
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"gitlab.com/flimzy/testy"

	"github.com/go-kivik/couchclient/chttp"
	"github.com/go-kivik/couchclient/internal/fakecouch"
)

func newCustomSession(fn testy.HTTPResponder, opts ...SessionOption) *Session {
	c, err := chttp.NewWithClient(testy.HTTPClient(fn), "http://example.com/")
	if err != nil {
		panic(err)
	}
	return NewSessionWithClient(c, opts...)
}

func newTestSession(resp *http.Response, err error, opts ...SessionOption) *Session {
	return newCustomSession(func(req *http.Request) (*http.Response, error) {
		if req.Body != nil {
			defer req.Body.Close() // nolint: errcheck
			if _, e := io.ReadAll(req.Body); e != nil {
				return nil, e
			}
		}
		if err != nil {
			return nil, err
		}
		resp.Request = req
		return resp, nil
	}, opts...)
}

func newTestDB(resp *http.Response, err error, opts ...SessionOption) *Database {
	db, e := newTestSession(resp, err, opts...).DB("testdb")
	if e != nil {
		panic(e)
	}
	return db
}

// newFakeSession returns a session connected to a fresh fakecouch server.
func newFakeSession(t *testing.T, opts ...SessionOption) (*Session, *fakecouch.Server) {
	t.Helper()
	s := fakecouch.New()
	t.Cleanup(s.Close)
	session, err := NewSession(s.URL, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return session, s
}

// newFakeDB returns a database handle for an existing database named testdb.
func newFakeDB(t *testing.T, opts ...SessionOption) (*Database, *fakecouch.Server) {
	t.Helper()
	session, s := newFakeSession(t, opts...)
	if err := session.CreateDB(context.Background(), "testdb"); err != nil {
		t.Fatal(err)
	}
	db, err := session.DB("testdb")
	if err != nil {
		t.Fatal(err)
	}
	return db, s
}

func testLogger() (hclog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return hclog.New(&hclog.LoggerOptions{
		Output:     buf,
		Level:      hclog.Debug,
		JSONFormat: true,
	}), buf
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Header:        http.Header{"Content-Type": {"application/json"}},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(strings.NewReader(body)),
	}
}

func httpResponse(method, path string, status int, body string) *http.Response {
	resp := jsonResponse(status, body)
	resp.Request = &http.Request{
		Method: method,
		URL:    &url.URL{Path: path},
	}
	return resp
}

func Body(str string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(str))
}
