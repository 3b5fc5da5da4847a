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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/go-kivik/couchclient/chttp"
)

// bulkDocsSuffix is the final path segment of the one endpoint which confirms
// success with an array of per-document results rather than an {"ok":true}
// object.
const bulkDocsSuffix = "_bulk_docs"

// Response is the interpreted result of a single CouchDB HTTP exchange. It is
// immutable once constructed.
//
// A 2xx response is OK when its body is {"ok":true}, or, for _bulk_docs, a
// non-empty array. Any other status is a server error, and ErrorID and
// ErrorReason hold the "error" and "reason" fields of the body. When the
// response carries no body at all, as for HEAD requests, OK is false and
// ErrorID is empty. An empty body on a 2xx response is a contract violation.
type Response struct {
	method     string
	path       string
	header     http.Header
	statusCode int
	phrase     string
	body       []byte
	hasBody    bool
	// absent is set when no body was delivered, as opposed to an empty one.
	absent bool
	bulk   bool

	ok          bool
	errorID     string
	errorReason string
}

// NewResponse reads and closes resp.Body, and interprets the response. The
// request method and path are taken from resp.Request.
//
// A *TransportError is returned if the body cannot be read. A
// *ResponseFormatError is returned if the body does not have the shape
// CouchDB documents for the status code.
func NewResponse(resp *http.Response) (*Response, error) {
	r := &Response{
		header:     resp.Header.Clone(),
		statusCode: resp.StatusCode,
		phrase:     reasonPhrase(resp),
	}
	if req := resp.Request; req != nil {
		r.method = req.Method
		if req.URL != nil {
			r.path = req.URL.Path
			// The escaped path keeps an encoded doc ID such as foo%2F_bulk_docs
			// in a single segment.
			r.bulk = path.Base(req.URL.EscapedPath()) == bulkDocsSuffix
		}
	}
	r.absent = resp.Body == nil || resp.Body == http.NoBody || r.method == http.MethodHead
	if resp.Body != nil {
		body, err := readBody(resp.Body)
		if err != nil {
			return nil, &TransportError{Err: errors.Wrapf(err, "%s %s: failed to read response body", r.method, r.path)}
		}
		r.body = body
		r.hasBody = len(body) > 0
	}
	if err := r.interpret(); err != nil {
		return nil, err
	}
	return r, nil
}

func readBody(body io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(body)
	err = multierr.Append(err, body.Close())
	return data, err
}

// reasonPhrase extracts the phrase from a status line such as "200 OK".
func reasonPhrase(resp *http.Response) string {
	if phrase := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); phrase != resp.Status && phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}

func (r *Response) interpret() error {
	r.ok, r.errorID, r.errorReason = false, "", ""
	if r.absent {
		return nil
	}
	if strings.HasPrefix(strconv.Itoa(r.statusCode), "2") {
		if r.bulk {
			return r.interpretBulk()
		}
		return r.interpretConfirmation()
	}
	if !r.hasBody {
		return nil
	}
	return r.interpretError()
}

func (r *Response) interpretBulk() error {
	if !bytes.HasPrefix(bytes.TrimSpace(r.body), []byte("[")) {
		return r.formatError(ErrNotArray, nil)
	}
	var results []json.RawMessage
	if err := json.Unmarshal(r.body, &results); err != nil {
		return r.formatError(ErrNotArray, err)
	}
	r.ok = len(results) > 0
	return nil
}

func (r *Response) interpretConfirmation() error {
	var confirmation struct {
		OK *bool `json:"ok"`
	}
	if len(bytes.TrimSpace(r.body)) == 0 {
		return r.formatError(ErrNotOK, nil)
	}
	if err := json.Unmarshal(r.body, &confirmation); err != nil {
		return r.formatError(ErrNotOK, err)
	}
	if confirmation.OK == nil || !*confirmation.OK {
		return r.formatError(ErrNotOK, nil)
	}
	r.ok = true
	return nil
}

func (r *Response) interpretError() error {
	var serverErr struct {
		Error  *string `json:"error"`
		Reason *string `json:"reason"`
	}
	if err := json.Unmarshal(r.body, &serverErr); err != nil {
		return r.formatError(ErrMalformedErrorBody, err)
	}
	if serverErr.Error == nil || serverErr.Reason == nil {
		return r.formatError(ErrMalformedErrorBody, nil)
	}
	r.errorID, r.errorReason = *serverErr.Error, *serverErr.Reason
	return nil
}

func (r *Response) formatError(cause, detail error) error {
	err := cause
	if detail != nil {
		err = fmt.Errorf("%w: %s", cause, detail)
	}
	return &ResponseFormatError{
		Method: r.method,
		Path:   r.path,
		Err:    err,
	}
}

// OK reports whether the server confirmed the request.
func (r *Response) OK() bool {
	return r.ok
}

// ErrorID returns the "error" field of an error response.
func (r *Response) ErrorID() string {
	return r.errorID
}

// ErrorReason returns the "reason" field of an error response.
func (r *Response) ErrorReason() string {
	return r.errorReason
}

// Err returns the server reported error as a *chttp.HTTPError, or nil if no
// error was reported.
func (r *Response) Err() error {
	if r.ok {
		return nil
	}
	if r.errorID != "" || r.statusCode >= http.StatusBadRequest {
		return &chttp.HTTPError{
			Code:    r.statusCode,
			ErrorID: r.errorID,
			Reason:  r.errorReason,
		}
	}
	return nil
}

// Body returns the raw response body.
func (r *Response) Body() string {
	return string(r.body)
}

// HasBody reports whether the server sent a non-empty body.
func (r *Response) HasBody() bool {
	return r.hasBody
}

// Array returns the body parsed as a JSON array, as returned by endpoints
// which list things. It returns nil if there was no body.
func (r *Response) Array() ([]interface{}, error) {
	if !r.hasBody {
		return nil, nil
	}
	var result []interface{}
	if err := r.Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

// Object returns the body parsed as a JSON object, as returned by endpoints
// which return a single document or record. It returns nil if there was no
// body.
func (r *Response) Object() (map[string]interface{}, error) {
	if !r.hasBody {
		return nil, nil
	}
	var result map[string]interface{}
	if err := r.Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

// Decode unmarshals the body into i.
func (r *Response) Decode(i interface{}) error {
	if err := json.Unmarshal(r.body, i); err != nil {
		return r.formatError(errors.Errorf("cannot decode body into %T", i), err)
	}
	return nil
}

// Header returns the first value of the header with exactly the given name,
// and whether it was present. No canonicalization is applied to name.
func (r *Response) Header(name string) (string, bool) {
	values, ok := r.header[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Headers returns a copy of all response headers.
func (r *Response) Headers() http.Header {
	return r.header.Clone()
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Phrase returns the HTTP status reason phrase.
func (r *Response) Phrase() string {
	return r.phrase
}

// Method returns the request method.
func (r *Response) Method() string {
	return r.method
}

// Path returns the request path.
func (r *Response) Path() string {
	return r.path
}

// WithStatus returns a copy of r with the status code and phrase replaced,
// and the body interpreted again under the new status. r is not modified.
func (r *Response) WithStatus(code int, phrase string) (*Response, error) {
	corrected := *r
	corrected.statusCode = code
	corrected.phrase = phrase
	if err := corrected.interpret(); err != nil {
		return nil, err
	}
	return &corrected, nil
}

// String returns a one-line summary of the exchange, including the full body.
func (r *Response) String() string {
	return fmt.Sprintf("[%s] %s [%d] => %s", r.method, r.path, r.statusCode, r.body)
}
