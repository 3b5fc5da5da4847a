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
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/go-kivik/couchclient/chttp"
	"github.com/go-kivik/couchclient/internal/fakecouch"
)

func TestQuery(t *testing.T) {
	db, s := newFakeDB(t)
	s.SetView("testdb", "stats", "by_year", []fakecouch.Row{
		{ID: "a", Key: []interface{}{"foo", 2019}, Value: 1},
		{ID: "b", Key: []interface{}{"foo", 2020}, Value: 2},
	})
	result, err := db.Query(context.Background(), "stats", "by_year", map[string]interface{}{
		"startkey": Key("foo"),
		"endkey":   Key("foo", EmptyObject()),
		"reduce":   false,
	})
	if err != nil {
		t.Fatal(err)
	}
	query := s.LastRequest().URL.Query()
	if sk, ek := query.Get("startkey"), query.Get("endkey"); sk != `["foo"]` || ek != `["foo",{}]` {
		t.Errorf("Unexpected key range: %s - %s", sk, ek)
	}
	if query.Get("reduce") != "false" {
		t.Errorf("Unexpected reduce: %s", query.Get("reduce"))
	}
	if result.TotalRows != 2 || len(result.Rows) != 2 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	var key []interface{}
	if err := result.Rows[1].ScanKey(&key); err != nil {
		t.Fatal(err)
	}
	if d := testy.DiffInterface([]interface{}{"foo", float64(2020)}, key); d != nil {
		t.Error(d)
	}
	var value int
	if err := result.Rows[1].ScanValue(&value); err != nil {
		t.Fatal(err)
	}
	if value != 2 {
		t.Errorf("Unexpected value: %d", value)
	}
	err = result.Rows[0].ScanDoc(&struct{}{})
	testy.Error(t, `couchdb: row "a" has no doc; set include_docs`, err)
}

func TestQueryErrors(t *testing.T) {
	db, _ := newFakeDB(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		ddoc   string
		view   string
		opts   map[string]interface{}
		status int
		err    string
	}{
		{
			name:   "missing ddoc",
			view:   "foo",
			status: http.StatusBadRequest,
			err:    "couchdb: ddoc required",
		},
		{
			name:   "missing view",
			ddoc:   "foo",
			status: http.StatusBadRequest,
			err:    "couchdb: view required",
		},
		{
			name:   "unknown view",
			ddoc:   "foo",
			view:   "bar",
			status: http.StatusNotFound,
			err:    "Not Found: missing_named_view",
		},
		{
			name:   "bad key",
			ddoc:   "foo",
			view:   "bar",
			opts:   map[string]interface{}{"key": Key(make(chan int))},
			status: http.StatusBadRequest,
			err:    "unsupported key component 0: json: unsupported type: chan int",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := db.Query(ctx, test.ddoc, test.view, test.opts)
			testy.StatusError(t, test.err, test.status, err)
		})
	}
	t.Run("network error", func(t *testing.T) {
		_, err := newTestDB(nil, errors.New("net error")).Query(ctx, "ddoc", "view", nil)
		testy.StatusError(t, `Get "http://example.com/testdb/_design/ddoc/_view/view": net error`, chttp.StatusNetworkError, err)
	})
}

func TestAllDocs(t *testing.T) {
	db, s := newFakeDB(t)
	ctx := context.Background()
	for _, id := range []string{"cow", "pig"} {
		if _, err := db.Put(ctx, id, animal{Sound: id}, nil); err != nil {
			t.Fatal(err)
		}
	}
	t.Run("include docs", func(t *testing.T) {
		result, err := db.AllDocs(ctx, map[string]interface{}{"include_docs": true})
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Rows) != 2 {
			t.Fatalf("Unexpected rows: %+v", result.Rows)
		}
		var doc animal
		if err := result.Rows[1].ScanDoc(&doc); err != nil {
			t.Fatal(err)
		}
		if doc.ID != "pig" || doc.Sound != "pig" {
			t.Errorf("Unexpected doc: %+v", doc)
		}
	})
	t.Run("keys", func(t *testing.T) {
		result, err := db.AllDocs(ctx, map[string]interface{}{"keys": []string{"pig", "horse"}})
		if err != nil {
			t.Fatal(err)
		}
		req := s.LastRequest()
		if req.Method != http.MethodPost || req.URL.Query().Get("keys") != "" {
			t.Errorf("Expected keys in a POST body, got %s %s", req.Method, req.URL)
		}
		if len(result.Rows) != 2 {
			t.Fatalf("Unexpected rows: %+v", result.Rows)
		}
		if result.Rows[0].ID != "pig" || result.Rows[1].Error != "not_found" {
			t.Errorf("Unexpected rows: %+v", result.Rows)
		}
	})
}

func TestViewResultUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *ViewResult
		err      string
	}{
		{
			name:  "CouchDB 1.x numeric update_seq",
			input: `{"total_rows":1,"offset":0,"update_seq":12,"rows":[{"id":"a","key":"a","value":1}]}`,
			expected: &ViewResult{
				TotalRows: 1,
				UpdateSeq: "12",
				Rows:      []Row{{ID: "a", Key: json.RawMessage(`"a"`), Value: json.RawMessage(`1`)}},
			},
		},
		{
			name:  "CouchDB 2.x string update_seq",
			input: `{"total_rows":0,"offset":0,"update_seq":"1-g1AAAA","rows":[]}`,
			expected: &ViewResult{
				UpdateSeq: "1-g1AAAA",
				Rows:      []Row{},
			},
		},
		{
			name:     "no update_seq",
			input:    `{"total_rows":0,"offset":0,"rows":[]}`,
			expected: &ViewResult{Rows: []Row{}},
		},
		{
			name:  "invalid",
			input: `{"rows":{}}`,
			err:   "cannot unmarshal object",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := &ViewResult{}
			err := json.Unmarshal([]byte(test.input), result)
			if test.err != "" {
				if err == nil || !strings.Contains(err.Error(), test.err) {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d := testy.DiffInterface(test.expected, result); d != nil {
				t.Error(d)
			}
		})
	}
}
