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
	"net/http"

	kivik "github.com/go-kivik/kivik/v4"
)

// DBStats contains database statistics, as returned by GET /{db}.
type DBStats struct {
	Name         string
	DocCount     int64
	DeletedCount int64
	UpdateSeq    string
	// DiskSize, ActiveSize and ExternalSize are in bytes.
	DiskSize     int64
	ActiveSize   int64
	ExternalSize int64
	// RawResponse is the unparsed response body.
	RawResponse json.RawMessage
}

// Stats returns database statistics.
func (d *Database) Stats(ctx context.Context) (*DBStats, error) {
	var body json.RawMessage
	if _, err := d.client().DoJSON(ctx, http.MethodGet, d.path("", nil), nil, &body); err != nil {
		return nil, err
	}
	var result struct {
		Name         string `json:"db_name"`
		DocCount     int64  `json:"doc_count"`
		DeletedCount int64  `json:"doc_del_count"`
		// CouchDB 1.x reports sizes at the top level
		DiskSize   int64 `json:"disk_size"`
		ActiveSize int64 `json:"data_size"`
		Sizes      struct {
			File     int64 `json:"file"`
			External int64 `json:"external"`
			Active   int64 `json:"active"`
		} `json:"sizes"`
		UpdateSeq json.RawMessage `json:"update_seq"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &kivik.Error{Status: http.StatusBadGateway, Err: err}
	}
	stats := &DBStats{
		Name:         result.Name,
		DocCount:     result.DocCount,
		DeletedCount: result.DeletedCount,
		UpdateSeq:    string(bytes.Trim(result.UpdateSeq, `"`)),
		DiskSize:     result.DiskSize,
		ActiveSize:   result.ActiveSize,
		RawResponse:  body,
	}
	if result.Sizes.File > 0 {
		stats.DiskSize = result.Sizes.File
	}
	if result.Sizes.External > 0 {
		stats.ExternalSize = result.Sizes.External
	}
	if result.Sizes.Active > 0 {
		stats.ActiveSize = result.Sizes.Active
	}
	return stats, nil
}
