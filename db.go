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

	"github.com/google/uuid"

	"github.com/go-kivik/couchclient/chttp"
)

// Database is a handle to a single CouchDB database.
type Database struct {
	session *Session
	dbName  string
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.dbName
}

func (d *Database) client() *chttp.Client {
	return d.session.client
}

func (d *Database) path(path string, query url.Values) string {
	p := url.PathEscape(d.dbName)
	if path = strings.TrimPrefix(path, "/"); path != "" {
		p += "/" + path
	}
	if len(query) > 0 {
		p += "?" + query.Encode()
	}
	return p
}

// Get fetches the requested document, and unmarshals it into doc.
func (d *Database) Get(ctx context.Context, docID string, doc interface{}, opts map[string]interface{}) error {
	if docID == "" {
		return missingArg("docID")
	}
	inm, err := ifNoneMatch(opts)
	if err != nil {
		return err
	}
	params, err := optionsToParams(opts)
	if err != nil {
		return err
	}
	_, err = d.client().DoJSON(ctx, http.MethodGet, d.path(chttp.EncodeDocID(docID), params), &chttp.Options{IfNoneMatch: inm}, doc)
	return err
}

// Rev returns the most current rev of the requested document.
func (d *Database) Rev(ctx context.Context, docID string) (string, error) {
	if docID == "" {
		return "", missingArg("docID")
	}
	res, err := d.client().DoError(ctx, http.MethodHead, d.path(chttp.EncodeDocID(docID), nil), nil)
	if err != nil {
		return "", err
	}
	return chttp.GetRev(res)
}

// Put creates or updates the document with the given ID, and returns the new
// revision.
func (d *Database) Put(ctx context.Context, docID string, doc interface{}, opts map[string]interface{}) (string, error) {
	if docID == "" {
		return "", missingArg("docID")
	}
	fc, err := fullCommit(opts)
	if err != nil {
		return "", err
	}
	params, err := optionsToParams(opts)
	if err != nil {
		return "", err
	}
	resp, err := d.session.confirm(ctx, http.MethodPut, d.path(chttp.EncodeDocID(docID), params), &chttp.Options{
		Body:       chttp.EncodeBody(doc),
		FullCommit: fc,
	})
	if err != nil {
		return "", err
	}
	return docRev(resp, docID)
}

// CreateDoc stores doc under a newly generated UUID, and returns the ID and
// revision. The ID is generated client-side, so a retried request cannot
// create a duplicate document.
func (d *Database) CreateDoc(ctx context.Context, doc interface{}, opts map[string]interface{}) (docID, rev string, err error) {
	docID = uuid.NewString()
	rev, err = d.Put(ctx, docID, doc, opts)
	if err != nil {
		return "", "", err
	}
	return docID, rev, nil
}

// Delete marks the document revision as deleted, and returns the revision of
// the deletion stub.
func (d *Database) Delete(ctx context.Context, docID, rev string, opts map[string]interface{}) (string, error) {
	if docID == "" {
		return "", missingArg("docID")
	}
	if rev == "" {
		return "", missingArg("rev")
	}
	fc, err := fullCommit(opts)
	if err != nil {
		return "", err
	}
	query := url.Values{}
	query.Add("rev", rev)
	resp, err := d.session.confirm(ctx, http.MethodDelete, d.path(chttp.EncodeDocID(docID), query), &chttp.Options{
		FullCommit: fc,
	})
	if err != nil {
		return "", err
	}
	return docRev(resp, docID)
}

// Copy copies the source document to a new document with ID targetID, and
// returns the new document's revision.
func (d *Database) Copy(ctx context.Context, targetID, sourceID string, opts map[string]interface{}) (string, error) {
	if sourceID == "" {
		return "", missingArg("sourceID")
	}
	if targetID == "" {
		return "", missingArg("targetID")
	}
	fc, err := fullCommit(opts)
	if err != nil {
		return "", err
	}
	params, err := optionsToParams(opts)
	if err != nil {
		return "", err
	}
	resp, err := d.session.confirm(ctx, "COPY", d.path(chttp.EncodeDocID(sourceID), params), &chttp.Options{
		FullCommit:  fc,
		Destination: targetID,
	})
	if err != nil {
		return "", err
	}
	return docRev(resp, targetID)
}

// docRev extracts the revision from a document write confirmation.
func docRev(resp *Response, docID string) (string, error) {
	var result struct {
		ID  string `json:"id"`
		Rev string `json:"rev"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", err
	}
	if result.ID != docID {
		// This should never happen; this is mostly for debugging and internal use
		return result.Rev, fmt.Errorf("modified document ID (%s) does not match that requested (%s)", result.ID, docID)
	}
	return result.Rev, nil
}
