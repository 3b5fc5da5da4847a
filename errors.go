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
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	kivik "github.com/go-kivik/kivik/v4"

	"github.com/go-kivik/couchclient/chttp"
)

// Causes for a *ResponseFormatError. Use errors.Is to match them.
var (
	// ErrNotOK means a 2xx response body was not an object with "ok": true.
	ErrNotOK = errors.New("response is not an ok confirmation")

	// ErrNotArray means a 2xx _bulk_docs response body was not a JSON array.
	ErrNotArray = errors.New("bulk response is not an array")

	// ErrMalformedErrorBody means an error response body lacked the string
	// fields "error" and "reason".
	ErrMalformedErrorBody = errors.New("malformed error response")

	// ErrUnsupportedKey means a complex key component could not be encoded
	// as JSON.
	ErrUnsupportedKey = errors.New("unsupported key component")
)

// ResponseFormatError is returned when a CouchDB response does not have the
// shape the API documents for the request. It indicates either a protocol
// change on the server side, or a bug in the client.
type ResponseFormatError struct {
	Method string
	Path   string
	Err    error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}

// StatusCode returns http.StatusBadGateway; the server answered, but not in
// a way this client can understand.
func (e *ResponseFormatError) StatusCode() int {
	return http.StatusBadGateway
}

// TransportError is returned when a response body could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying I/O error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the network error status.
func (e *TransportError) StatusCode() int {
	return chttp.StatusNetworkError
}

func missingArg(arg string) error {
	return &kivik.Error{Status: http.StatusBadRequest, Err: fmt.Errorf("couchdb: %s required", arg)}
}
