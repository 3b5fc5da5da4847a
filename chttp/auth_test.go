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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitlab.com/flimzy/testy"
)

func TestBasicAuthRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		auth     *BasicAuth
		expected *http.Response
	}{
		{
			name: "provided transport",
			auth: &BasicAuth{
				Username: "foo",
				Password: "bar",
				transport: customTransport(func(req *http.Request) (*http.Response, error) {
					u, p, ok := req.BasicAuth()
					if !ok {
						t.Error("BasicAuth not set in request")
					}
					if u != "foo" || p != "bar" { // nolint: goconst
						t.Errorf("Unexpected user/password: %s/%s", u, p)
					}
					return &http.Response{StatusCode: 200}, nil
				}),
			},
			expected: &http.Response{StatusCode: 200},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "http://example.com/", nil)
			res, err := test.auth.RoundTrip(req)
			if err != nil {
				t.Fatal(err)
			}
			if _, _, ok := req.BasicAuth(); ok {
				t.Error("original request was modified")
			}
			if d := testy.DiffInterface(test.expected, res); d != nil {
				t.Error(d)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "admin" || p != "abc123" {
			w.Header().Set("Content-Type", typeJSON)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","reason":"Name or password is incorrect."}`))
			return
		}
		w.Header().Set("Content-Type", typeJSON)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer s.Close()

	tests := []struct {
		name   string
		auth   Authenticator
		status int
		err    string
	}{
		{
			name:   "no auth",
			status: http.StatusUnauthorized,
			err:    "Unauthorized: Name or password is incorrect.",
		},
		{
			name:   "bad password",
			auth:   &BasicAuth{Username: "admin", Password: "wrong"},
			status: http.StatusUnauthorized,
			err:    "Unauthorized: Name or password is incorrect.",
		},
		{
			name: "success",
			auth: &BasicAuth{Username: "admin", Password: "abc123"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := New(s.URL)
			if err != nil {
				t.Fatal(err)
			}
			if test.auth != nil {
				if err := c.Auth(test.auth); err != nil {
					t.Fatal(err)
				}
			}
			_, err = c.DoError(context.Background(), http.MethodGet, "/", nil)
			testy.StatusError(t, test.err, test.status, err)
		})
	}
}

func TestProxyAuth(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		a := &ProxyAuth{Username: "foo", Secret: "bar"}
		if token := a.Token(); token != "85d155c55ed286a300bd1cf124de08d87e914f3a" {
			t.Errorf("Unexpected token: %s", token)
		}
		if token := (&ProxyAuth{Username: "foo"}).Token(); token != "" {
			t.Errorf("Expected no token without a secret, got %s", token)
		}
	})
	t.Run("headers", func(t *testing.T) {
		var got http.Header
		c := newCustomClient("", func(req *http.Request) (*http.Response, error) {
			got = req.Header
			return &http.Response{StatusCode: http.StatusOK, Body: Body("{}"), Request: req}, nil
		})
		auth := &ProxyAuth{
			Username: "foo",
			Secret:   "bar",
			Roles:    []string{"_admin", "users"},
			Headers:  http.Header{"X-Auth-Couchdb-Username": {"x-user"}},
		}
		if err := c.Auth(auth); err != nil {
			t.Fatal(err)
		}
		if _, err := c.DoError(context.Background(), http.MethodGet, "/", nil); err != nil {
			t.Fatal(err)
		}
		if v := got.Get("X-User"); v != "foo" {
			t.Errorf("Unexpected user header: %q", v)
		}
		if v := got.Get("X-Auth-CouchDB-Roles"); v != "_admin,users" {
			t.Errorf("Unexpected roles header: %q", v)
		}
		if v := got.Get("X-Auth-CouchDB-Token"); v != auth.Token() {
			t.Errorf("Unexpected token header: %q", v)
		}
	})
}
