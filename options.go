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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	kivik "github.com/go-kivik/kivik/v4"
)

// jsonKeys are the view and _all_docs query parameters which CouchDB expects
// to be JSON encoded.
var jsonKeys = map[string]bool{
	"endkey":    true,
	"end_key":   true,
	"key":       true,
	"startkey":  true,
	"start_key": true,
	"keys":      true,
	"doc_ids":   true,
}

// headerOptions are option keys which set request headers rather than URL
// parameters.
var headerOptions = map[string]bool{
	OptionFullCommit:  true,
	OptionIfNoneMatch: true,
}

// encodeKey encodes a key to a view query, or similar, to be passed to CouchDB.
func encodeKey(i interface{}) (string, error) {
	if raw, ok := i.(json.RawMessage); ok {
		return string(raw), nil
	}
	raw, err := json.Marshal(i)
	if err != nil {
		var keyErr *KeyError
		if errors.As(err, &keyErr) {
			return "", keyErr
		}
		return "", &kivik.Error{Status: http.StatusBadRequest, Err: err}
	}
	return string(raw), nil
}

func optionsToParams(opts map[string]interface{}) (url.Values, error) {
	params := url.Values{}
	for key, i := range opts {
		if headerOptions[key] {
			continue
		}
		if jsonKeys[key] {
			value, err := encodeKey(i)
			if err != nil {
				return nil, err
			}
			params.Add(key, value)
			continue
		}
		var values []string
		switch v := i.(type) {
		case string:
			values = []string{v}
		case []string:
			values = v
		case bool:
			values = []string{fmt.Sprintf("%t", v)}
		case int, uint, uint8, uint16, uint32, uint64, int8, int16, int32, int64:
			values = []string{fmt.Sprintf("%d", v)}
		default:
			return nil, &kivik.Error{Status: http.StatusBadRequest, Err: fmt.Errorf("couchdb: invalid type %T for option '%s'", i, key)}
		}
		for _, value := range values {
			params.Add(key, value)
		}
	}
	return params, nil
}

func fullCommit(opts map[string]interface{}) (bool, error) {
	fc, ok := opts[OptionFullCommit]
	if !ok {
		return false, nil
	}
	fcBool, ok := fc.(bool)
	if !ok {
		return false, &kivik.Error{Status: http.StatusBadRequest, Err: fmt.Errorf("couchdb: option '%s' must be bool, not %T", OptionFullCommit, fc)}
	}
	return fcBool, nil
}

func ifNoneMatch(opts map[string]interface{}) (string, error) {
	inm, ok := opts[OptionIfNoneMatch]
	if !ok {
		return "", nil
	}
	inmString, ok := inm.(string)
	if !ok {
		return "", &kivik.Error{Status: http.StatusBadRequest, Err: fmt.Errorf("couchdb: option '%s' must be string, not %T", OptionIfNoneMatch, inm)}
	}
	return inmString, nil
}
