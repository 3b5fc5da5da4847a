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

/*
Package couchdb is a client for the CouchDB HTTP API.

Responses

Requests which CouchDB answers with a confirmation (document writes, database
creation and deletion, bulk updates) are interpreted by NewResponse. A 2xx
response must carry {"ok":true}, or for _bulk_docs a non-empty array of
per-document results. Any other status must carry an {"error","reason"}
object, which is exposed through Response.ErrorID and Response.ErrorReason.
Bodies of any other shape produce a *ResponseFormatError.

Complex keys

View keys are frequently arrays. Key builds one, with EmptyObject and
EmptyArray available for the collation sentinels {} and []:

    startkey := couchdb.Key("foo")
    endkey := couchdb.Key("foo", couchdb.EmptyObject()) // ["foo",{}]

Options

Option maps are generally interpreted as URL query parameters. Values of the
following types will be converted to their appropriate string representation
when URL-encoded:

 - bool
 - string
 - []string
 - int, uint, uint8, uint16, uint32, uint64, int8, int16, int32, int64

The keys "key", "keys", "startkey", "start_key", "endkey", "end_key" and
"doc_ids" accept any JSON-encodable value, including a *ComplexKey. Passing
any other type for other keys will return an error.

The special option keys OptionFullCommit and OptionIfNoneMatch set request
headers rather than URL parameters.

Authentication

Credentials included in the DSN are used for cookie authentication. To use one
of the other mechanisms, leave them out and call Session.Authenticate:

    s, _ := couchdb.NewSession("http://localhost:5984/")
    err := s.Authenticate(&chttp.BasicAuth{Username: "bob", Password: "abc123"})
*/
package couchdb
