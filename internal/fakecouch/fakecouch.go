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

// Package fakecouch provides an in-memory stand-in for a CouchDB server, for
// use in tests. It implements just enough of the API to exercise the client:
// databases, documents with revisions, _bulk_docs, _all_docs, canned view
// results and cookie sessions.
package fakecouch

import (
	"crypto/md5" // nolint: gosec
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionCookie is the value of the AuthSession cookie issued by POST /_session.
const SessionCookie = "ZmFrZWNvdWNo"

// Row is a canned view row.
type Row struct {
	ID    string      `json:"id"`
	Key   interface{} `json:"key"`
	Value interface{} `json:"value"`
}

// Server is a fake CouchDB server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	dbs      map[string]map[string]map[string]interface{}
	views    map[string][]Row
	requests []*http.Request
}

// New starts a new Server. Call Close when done.
func New() *Server {
	s := &Server{
		dbs:   make(map[string]map[string]map[string]interface{}),
		views: make(map[string][]Row),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func init() {
	chi.RegisterMethod("COPY")
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Head("/_up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/_all_dbs", s.allDBs)
	r.Post("/_session", s.postSession)
	r.Route("/{db}", func(r chi.Router) {
		r.Head("/", s.dbExists)
		r.Get("/", s.dbInfo)
		r.Put("/", s.createDB)
		r.Delete("/", s.deleteDB)
		r.Post("/_bulk_docs", s.bulkDocs)
		r.Get("/_all_docs", s.allDocs)
		r.Post("/_all_docs", s.allDocs)
		r.Get("/_design/{ddoc}/_view/{view}", s.view)
		r.Post("/_design/{ddoc}/_view/{view}", s.view)
		r.Get("/{doc}", s.getDoc)
		r.Head("/{doc}", s.getDoc)
		r.Put("/{doc}", s.putDoc)
		r.Delete("/{doc}", s.deleteDoc)
		r.Method("COPY", "/{doc}", http.HandlerFunc(s.copyDoc))
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns the requests received so far, bodies excluded.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// LastRequest returns the most recent request, or nil.
func (s *Server) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// SetView installs the rows returned by the named view.
func (s *Server) SetView(db, ddoc, view string, rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[db+"/"+ddoc+"/"+view] = rows
}

// Doc returns a copy of the stored document, or nil.
func (s *Server) Doc(db, id string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.dbs[db][id]
	if !ok {
		return nil
	}
	clone := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		clone[k] = v
	}
	return clone
}

func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, i interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(i)
}

func writeError(w http.ResponseWriter, status int, errID, reason string) {
	writeJSON(w, status, map[string]string{"error": errID, "reason": reason})
}

func notFound(w http.ResponseWriter, reason string) {
	writeError(w, http.StatusNotFound, "not_found", reason)
}

func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid credentials")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "AuthSession", Value: SessionCookie, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "name": creds.Name, "roles": []string{}})
}

func (s *Server) allDBs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.dbs))
	for name := range s.dbs {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) dbExists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.dbs[param(r, "db")]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) dbInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	var size int
	for _, doc := range db {
		raw, _ := json.Marshal(doc)
		size += len(raw)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"db_name":       param(r, "db"),
		"doc_count":     len(db),
		"doc_del_count": 0,
		"update_seq":    fmt.Sprintf("%d-g1AAAAFTeJzLYWBg4MhgTmEQTM4vTc5ISXIwNDDSMzQx1zMyNjQy", len(db)),
		"sizes": map[string]int{
			"file":     size + 4096,
			"external": size,
			"active":   size,
		},
	})
}

func (s *Server) createDB(w http.ResponseWriter, r *http.Request) {
	name := param(r, "db")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; ok {
		writeError(w, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
		return
	}
	s.dbs[name] = make(map[string]map[string]interface{})
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (s *Server) deleteDB(w http.ResponseWriter, r *http.Request) {
	name := param(r, "db")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; !ok {
		notFound(w, "Database does not exist.")
		return
	}
	delete(s.dbs, name)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// db returns the named database; s.mu must be held.
func (s *Server) db(w http.ResponseWriter, r *http.Request) (map[string]map[string]interface{}, bool) {
	db, ok := s.dbs[param(r, "db")]
	if !ok {
		notFound(w, "Database does not exist.")
	}
	return db, ok
}

func nextRev(current string, doc map[string]interface{}) string {
	var n int
	if current != "" {
		n, _ = strconv.Atoi(strings.SplitN(current, "-", 2)[0])
	}
	raw, _ := json.Marshal(doc)
	sum := md5.Sum(raw) // nolint: gosec
	return fmt.Sprintf("%d-%s", n+1, hex.EncodeToString(sum[:]))
}

func currentRev(doc map[string]interface{}) string {
	rev, _ := doc["_rev"].(string)
	return rev
}

// store saves doc under id, checking the revision; s.mu must be held.
func store(db map[string]map[string]interface{}, id string, doc map[string]interface{}) (string, bool) {
	var current string
	if existing, ok := db[id]; ok {
		current = currentRev(existing)
	}
	if currentRev(doc) != current {
		return "", false
	}
	doc["_id"] = id
	rev := nextRev(current, doc)
	doc["_rev"] = rev
	db[id] = doc
	return rev, true
}

func (s *Server) getDoc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	doc, ok := db[param(r, "doc")]
	if !ok {
		notFound(w, "missing")
		return
	}
	w.Header().Set("ETag", strconv.Quote(currentRev(doc)))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) putDoc(w http.ResponseWriter, r *http.Request) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	id := param(r, "doc")
	rev, ok := store(db, id, doc)
	if !ok {
		writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
		return
	}
	w.Header().Set("ETag", strconv.Quote(rev))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": rev})
}

func (s *Server) deleteDoc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	id := param(r, "doc")
	doc, ok := db[id]
	if !ok {
		notFound(w, "missing")
		return
	}
	if r.URL.Query().Get("rev") != currentRev(doc) {
		writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
		return
	}
	delete(db, id)
	rev := nextRev(currentRev(doc), map[string]interface{}{"_deleted": true})
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "rev": rev})
}

func (s *Server) copyDoc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	source, ok := db[param(r, "doc")]
	if !ok {
		notFound(w, "missing")
		return
	}
	target := r.Header.Get("Destination")
	if target == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "Destination header is mandatory for COPY.")
		return
	}
	doc := make(map[string]interface{}, len(source))
	for k, v := range source {
		doc[k] = v
	}
	delete(doc, "_rev")
	if existing, ok := db[target]; ok {
		doc["_rev"] = currentRev(existing)
	}
	rev, ok := store(db, target, doc)
	if !ok {
		writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": target, "rev": rev})
}

func (s *Server) bulkDocs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Docs []map[string]interface{} `json:"docs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	results := make([]map[string]interface{}, 0, len(req.Docs))
	for _, doc := range req.Docs {
		id, _ := doc["_id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		rev, ok := store(db, id, doc)
		if !ok {
			results = append(results, map[string]interface{}{"id": id, "error": "conflict", "reason": "Document update conflict."})
			continue
		}
		results = append(results, map[string]interface{}{"ok": true, "id": id, "rev": rev})
	}
	writeJSON(w, http.StatusCreated, results)
}

func (s *Server) allDocs(w http.ResponseWriter, r *http.Request) {
	var keys []string
	if r.Method == http.MethodPost {
		var req struct {
			Keys []string `json:"keys"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")
			return
		}
		keys = req.Keys
	}
	includeDocs := r.URL.Query().Get("include_docs") == "true"
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.db(w, r)
	if !ok {
		return
	}
	if keys == nil {
		for id := range db {
			keys = append(keys, id)
		}
		sort.Strings(keys)
	}
	rows := make([]map[string]interface{}, 0, len(keys))
	for _, id := range keys {
		doc, ok := db[id]
		if !ok {
			rows = append(rows, map[string]interface{}{"key": id, "error": "not_found"})
			continue
		}
		row := map[string]interface{}{
			"id":    id,
			"key":   id,
			"value": map[string]string{"rev": currentRev(doc)},
		}
		if includeDocs {
			row["doc"] = doc
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_rows": len(db),
		"offset":     0,
		"rows":       rows,
	})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.db(w, r); !ok {
		return
	}
	rows, ok := s.views[param(r, "db")+"/"+param(r, "ddoc")+"/"+param(r, "view")]
	if !ok {
		notFound(w, "missing_named_view")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_rows": len(rows),
		"offset":     0,
		"rows":       rows,
	})
}
