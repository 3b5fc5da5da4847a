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
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/go-kivik/couchclient/chttp"
)

type animal struct {
	ID    string `json:"_id,omitempty"`
	Rev   string `json:"_rev,omitempty"`
	Sound string `json:"sound"`
}

func TestDocumentLifecycle(t *testing.T) {
	db, s := newFakeDB(t)
	ctx := context.Background()

	rev, err := db.Put(ctx, "cow", animal{Sound: "moo"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rev, "1-") {
		t.Errorf("Unexpected rev: %s", rev)
	}

	var doc animal
	if err := db.Get(ctx, "cow", &doc, nil); err != nil {
		t.Fatal(err)
	}
	if d := testy.DiffInterface(animal{ID: "cow", Rev: rev, Sound: "moo"}, doc); d != nil {
		t.Error(d)
	}

	headRev, err := db.Rev(ctx, "cow")
	if err != nil {
		t.Fatal(err)
	}
	if headRev != rev {
		t.Errorf("Unexpected HEAD rev: %s", headRev)
	}

	doc.Sound = "MOO"
	rev2, err := db.Put(ctx, "cow", doc, map[string]interface{}{OptionFullCommit: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rev2, "2-") {
		t.Errorf("Unexpected rev: %s", rev2)
	}
	if fc := s.LastRequest().Header.Get(OptionFullCommit); fc != "true" {
		t.Errorf("Full commit header not sent: %q", fc)
	}

	_, err = db.Put(ctx, "cow", animal{Rev: rev, Sound: "baa"}, nil)
	testy.StatusError(t, "Conflict: Document update conflict.", http.StatusConflict, err)
}

func TestDocumentDelete(t *testing.T) {
	db, s := newFakeDB(t)
	ctx := context.Background()
	rev, err := db.Put(ctx, "cow", animal{Sound: "moo"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Delete(ctx, "cow", "1-bogus", nil)
	if StatusCode(err) != http.StatusConflict {
		t.Errorf("Expected conflict, got %v", err)
	}
	newRev, err := db.Delete(ctx, "cow", rev, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(newRev, "2-") {
		t.Errorf("Unexpected rev: %s", newRev)
	}
	if doc := s.Doc("testdb", "cow"); doc != nil {
		t.Errorf("Document not deleted: %v", doc)
	}
	err = db.Get(ctx, "cow", &animal{}, nil)
	testy.StatusError(t, "Not Found: missing", http.StatusNotFound, err)
}

func TestCopy(t *testing.T) {
	db, s := newFakeDB(t)
	ctx := context.Background()
	if _, err := db.Put(ctx, "cow", animal{Sound: "moo"}, nil); err != nil {
		t.Fatal(err)
	}
	rev, err := db.Copy(ctx, "calf", "cow", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rev, "1-") {
		t.Errorf("Unexpected rev: %s", rev)
	}
	if sound := s.Doc("testdb", "calf")["sound"]; sound != "moo" {
		t.Errorf("Unexpected copied doc: %v", s.Doc("testdb", "calf"))
	}
	if dest := s.LastRequest().Header.Get("Destination"); dest != "calf" {
		t.Errorf("Unexpected Destination header: %s", dest)
	}
}

func TestCreateDoc(t *testing.T) {
	db, s := newFakeDB(t)
	docID, rev, err := db.CreateDoc(context.Background(), map[string]string{"sound": "oink"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(docID) != 36 || !strings.HasPrefix(rev, "1-") {
		t.Errorf("Unexpected result: %s, %s", docID, rev)
	}
	if s.LastRequest().Method != http.MethodPut {
		t.Errorf("Expected PUT, got %s", s.LastRequest().Method)
	}
	if doc := s.Doc("testdb", docID); doc["sound"] != "oink" {
		t.Errorf("Unexpected stored doc: %v", doc)
	}
}

func TestDocIDEscaping(t *testing.T) {
	db, s := newFakeDB(t)
	ctx := context.Background()
	for _, id := range []string{"foo/bar", "foo bar", "foo+bar@baz.com"} {
		t.Run(id, func(t *testing.T) {
			if _, err := db.Put(ctx, id, animal{Sound: "?"}, nil); err != nil {
				t.Fatal(err)
			}
			if doc := s.Doc("testdb", id); doc == nil {
				t.Errorf("Document %q not stored under the expected ID", id)
			}
			var doc animal
			if err := db.Get(ctx, id, &doc, nil); err != nil {
				t.Fatal(err)
			}
			if doc.ID != id {
				t.Errorf("Unexpected ID: %s", doc.ID)
			}
		})
	}
}

func TestDocumentArgs(t *testing.T) {
	db := newTestDB(nil, errors.New("should not be called"))
	ctx := context.Background()
	tests := []struct {
		name   string
		fn     func() error
		status int
		err    string
	}{
		{
			name:   "get without ID",
			fn:     func() error { return db.Get(ctx, "", nil, nil) },
			status: http.StatusBadRequest,
			err:    "couchdb: docID required",
		},
		{
			name: "rev without ID",
			fn: func() error {
				_, err := db.Rev(ctx, "")
				return err
			},
			status: http.StatusBadRequest,
			err:    "couchdb: docID required",
		},
		{
			name: "put without ID",
			fn: func() error {
				_, err := db.Put(ctx, "", nil, nil)
				return err
			},
			status: http.StatusBadRequest,
			err:    "couchdb: docID required",
		},
		{
			name: "delete without rev",
			fn: func() error {
				_, err := db.Delete(ctx, "foo", "", nil)
				return err
			},
			status: http.StatusBadRequest,
			err:    "couchdb: rev required",
		},
		{
			name: "copy without target",
			fn: func() error {
				_, err := db.Copy(ctx, "", "foo", nil)
				return err
			},
			status: http.StatusBadRequest,
			err:    "couchdb: targetID required",
		},
		{
			name: "invalid option",
			fn: func() error {
				_, err := db.Put(ctx, "foo", nil, map[string]interface{}{"foo": 1.5})
				return err
			},
			status: http.StatusBadRequest,
			err:    "couchdb: invalid type float64 for option 'foo'",
		},
		{
			name: "invalid full commit",
			fn: func() error {
				_, err := db.Put(ctx, "foo", nil, map[string]interface{}{OptionFullCommit: "yes"})
				return err
			},
			status: http.StatusBadRequest,
			err:    "couchdb: option 'X-Couch-Full-Commit' must be bool, not string",
		},
		{
			name: "invalid if-none-match",
			fn: func() error {
				return db.Get(ctx, "foo", nil, map[string]interface{}{OptionIfNoneMatch: 1})
			},
			status: http.StatusBadRequest,
			err:    "couchdb: option 'If-None-Match' must be string, not int",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			testy.StatusError(t, test.err, test.status, test.fn())
		})
	}
}

func TestPutResponses(t *testing.T) {
	tests := []struct {
		name     string
		db       *Database
		expected string
		status   int
		err      string
	}{
		{
			name:   "network error",
			db:     newTestDB(nil, errors.New("net error")),
			status: chttp.StatusNetworkError,
			err:    `Put "http://example.com/testdb/foo": net error`,
		},
		{
			name:     "success",
			db:       newTestDB(jsonResponse(http.StatusCreated, `{"ok":true,"id":"foo","rev":"1-xxx"}`), nil),
			expected: "1-xxx",
		},
		{
			name:   "not ok",
			db:     newTestDB(jsonResponse(http.StatusCreated, `{"id":"foo","rev":"1-xxx"}`), nil),
			status: http.StatusBadGateway,
			err:    "PUT /testdb/foo: response is not an ok confirmation",
		},
		{
			name:     "ID mismatch",
			db:       newTestDB(jsonResponse(http.StatusCreated, `{"ok":true,"id":"bar","rev":"1-xxx"}`), nil),
			expected: "1-xxx",
			status:   http.StatusInternalServerError,
			err:      "modified document ID (bar) does not match that requested (foo)",
		},
		{
			name:   "forbidden",
			db:     newTestDB(jsonResponse(http.StatusForbidden, `{"error":"forbidden","reason":"Only admins may write"}`), nil),
			status: http.StatusForbidden,
			err:    "Forbidden: Only admins may write",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rev, err := test.db.Put(context.Background(), "foo", map[string]string{"a": "b"}, nil)
			if rev != test.expected {
				t.Errorf("Unexpected rev: %s", rev)
			}
			testy.StatusError(t, test.err, test.status, err)
		})
	}
}

func TestPutBody(t *testing.T) {
	var body string
	session := newCustomSession(func(req *http.Request) (*http.Response, error) {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(b)
		resp := jsonResponse(http.StatusCreated, `{"ok":true,"id":"foo","rev":"1-xxx"}`)
		resp.Request = req
		return resp, nil
	})
	db, _ := session.DB("testdb")
	if _, err := db.Put(context.Background(), "foo", animal{Sound: "moo"}, nil); err != nil {
		t.Fatal(err)
	}
	if d := testy.DiffAsJSON([]byte(`{"sound":"moo"}`), []byte(body)); d != nil {
		t.Error(d)
	}
}

func TestDocIDEndingInBulkDocs(t *testing.T) {
	db, s := newFakeDB(t)
	ctx := context.Background()
	for _, id := range []string{"archive_bulk_docs", "archive/_bulk_docs"} {
		t.Run(id, func(t *testing.T) {
			rev, err := db.Put(ctx, id, animal{Sound: "moo"}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if s.Doc("testdb", id) == nil {
				t.Fatalf("Document %q was not stored", id)
			}
			target := id + "_copy"
			if _, err := db.Copy(ctx, target, id, nil); err != nil {
				t.Fatal(err)
			}
			if _, err := db.Delete(ctx, id, rev, nil); err != nil {
				t.Fatal(err)
			}
		})
	}
}
