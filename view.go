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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-kivik/couchclient/chttp"
)

// Row is a single row of a view or _all_docs result.
type Row struct {
	ID    string          `json:"id"`
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
	Doc   json.RawMessage `json:"doc,omitempty"`
	// Error is set for rows of keys which were not found, such as when
	// querying _all_docs with keys.
	Error string `json:"error,omitempty"`
}

// ScanKey unmarshals the row's key into dest.
func (r *Row) ScanKey(dest interface{}) error {
	return json.Unmarshal(r.Key, dest)
}

// ScanValue unmarshals the row's value into dest.
func (r *Row) ScanValue(dest interface{}) error {
	return json.Unmarshal(r.Value, dest)
}

// ScanDoc unmarshals the row's included document into dest. It fails if the
// query was not made with include_docs=true.
func (r *Row) ScanDoc(dest interface{}) error {
	if len(r.Doc) == 0 {
		return fmt.Errorf("couchdb: row %q has no doc; set include_docs", r.ID)
	}
	return json.Unmarshal(r.Doc, dest)
}

// ViewResult is the result of a view query.
type ViewResult struct {
	TotalRows int64
	Offset    int64
	UpdateSeq string
	Rows      []Row
}

// UnmarshalJSON satisfies the json.Unmarshaler interface.
func (v *ViewResult) UnmarshalJSON(data []byte) error {
	var result struct {
		TotalRows int64           `json:"total_rows"`
		Offset    int64           `json:"offset"`
		UpdateSeq json.RawMessage `json:"update_seq"`
		Rows      []Row           `json:"rows"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	*v = ViewResult{
		TotalRows: result.TotalRows,
		Offset:    result.Offset,
		// CouchDB 1.x uses numeric sequences, 2.x and later use strings
		UpdateSeq: string(bytes.Trim(result.UpdateSeq, `"`)),
		Rows:      result.Rows,
	}
	return nil
}

// AllDocs returns all of the documents in the database.
func (d *Database) AllDocs(ctx context.Context, opts map[string]interface{}) (*ViewResult, error) {
	return d.rowsQuery(ctx, "_all_docs", opts)
}

// Query queries a view. Keys passed in the "key", "keys", "startkey" and
// "endkey" options (or their underscored aliases) are JSON encoded, so a
// *ComplexKey may be passed directly:
//
//    db.Query(ctx, "ddoc", "by_date", map[string]interface{}{
//        "startkey": couchdb.Key(2024, 1),
//        "endkey":   couchdb.Key(2024, 1, couchdb.EmptyObject()),
//    })
func (d *Database) Query(ctx context.Context, ddoc, view string, opts map[string]interface{}) (*ViewResult, error) {
	if ddoc == "" {
		return nil, missingArg("ddoc")
	}
	if view == "" {
		return nil, missingArg("view")
	}
	return d.rowsQuery(ctx, fmt.Sprintf("_design/%s/_view/%s", chttp.EncodeDocID(ddoc), chttp.EncodeDocID(view)), opts)
}

// rowsQuery performs a query that returns rows. When opts contains "keys",
// they are sent in a POST body to accommodate an arbitrary number of keys.
func (d *Database) rowsQuery(ctx context.Context, path string, opts map[string]interface{}) (*ViewResult, error) {
	keys, hasKeys := opts["keys"]
	query := opts
	if hasKeys {
		query = make(map[string]interface{}, len(opts))
		for k, v := range opts {
			if k != "keys" {
				query[k] = v
			}
		}
	}
	params, err := optionsToParams(query)
	if err != nil {
		return nil, err
	}
	method := http.MethodGet
	var chttpOpts *chttp.Options
	if hasKeys {
		method = http.MethodPost
		chttpOpts = &chttp.Options{
			Body: chttp.EncodeBody(map[string]interface{}{"keys": keys}),
		}
	}
	result := &ViewResult{}
	if _, err := d.client().DoJSON(ctx, method, d.path(path, params), chttpOpts, result); err != nil {
		return nil, err
	}
	d.session.logger.Debug("query", "method", method, "path", path, "rows", len(result.Rows))
	return result, nil
}
