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
	"net/http"

	"github.com/go-kivik/couchclient/chttp"
)

// BulkResult is the outcome of one document update in a BulkDocs call.
type BulkResult struct {
	ID  string
	Rev string
	// Error is a *chttp.HTTPError if the document was not stored.
	Error error
}

// bulkErrorStatus maps the per-document error names CouchDB uses in
// _bulk_docs results to HTTP status codes.
var bulkErrorStatus = map[string]int{
	"conflict":        http.StatusConflict,
	"forbidden":       http.StatusForbidden,
	"unauthorized":    http.StatusUnauthorized,
	"not_implemented": http.StatusNotImplemented,
}

// BulkDocs creates or updates docs in a single request. Options other than
// OptionFullCommit, such as "new_edits", are sent in the request body.
func (d *Database) BulkDocs(ctx context.Context, docs []interface{}, opts map[string]interface{}) ([]BulkResult, error) {
	fc, err := fullCommit(opts)
	if err != nil {
		return nil, err
	}
	body := make(map[string]interface{}, len(opts)+1)
	for k, v := range opts {
		if !headerOptions[k] {
			body[k] = v
		}
	}
	body["docs"] = docs
	resp, err := d.session.confirm(ctx, http.MethodPost, d.path(bulkDocsSuffix, nil), &chttp.Options{
		Body:       chttp.EncodeBody(body),
		FullCommit: fc,
	})
	if err != nil {
		return nil, err
	}
	if !resp.HasBody() {
		return nil, resp.formatError(ErrNotArray, nil)
	}
	var updates []struct {
		ID     string `json:"id"`
		Rev    string `json:"rev"`
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	if err := resp.Decode(&updates); err != nil {
		return nil, err
	}
	results := make([]BulkResult, len(updates))
	for i, update := range updates {
		results[i] = BulkResult{
			ID:  update.ID,
			Rev: update.Rev,
		}
		if update.Error != "" {
			status, ok := bulkErrorStatus[update.Error]
			if !ok {
				d.session.logger.Warn("unknown bulk update error", "id", update.ID, "error", update.Error, "reason", update.Reason)
				status = http.StatusInternalServerError
			}
			results[i].Error = &chttp.HTTPError{
				Code:    status,
				ErrorID: update.Error,
				Reason:  update.Reason,
			}
		}
	}
	return results, nil
}
