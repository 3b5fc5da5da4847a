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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	couchdb "github.com/go-kivik/couchclient"
)

type ViewCommand struct {
	Meta
}

func (c *ViewCommand) Help() string {
	helpText := `
Usage: couchctl view [options] <db> <ddoc> <view>

  Query a view, and print each row as a line of JSON. Use _all_docs as the
  ddoc, and omit the view, to list the documents in the database.

General Options:

` + generalOptionsUsage + `

View Options:

  -key=<json array>
  -startkey=<json array>
  -endkey=<json array>
    Complex keys, such as '["2024",{}]'. An empty object or empty array
    component sorts after or before all other values, respectively.

  -include-docs
    Include the full document in each row.

  -limit=<n>
    Return at most n rows.

  -reduce=<true|false>
    Whether to run the view's reduce function.`
	return strings.TrimSpace(helpText)
}

func (c *ViewCommand) Synopsis() string { return "Query a view" }

func (c *ViewCommand) Name() string { return "view" }

func (c *ViewCommand) Run(args []string) int {
	var key, startKey, endKey, reduce string
	var includeDocs bool
	var limit int
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&key, "key", "", "")
	flags.StringVar(&startKey, "startkey", "", "")
	flags.StringVar(&endKey, "endkey", "", "")
	flags.StringVar(&reduce, "reduce", "", "")
	flags.BoolVar(&includeDocs, "include-docs", false, "")
	flags.IntVar(&limit, "limit", 0, "")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	allDocs := len(args) == 2 && args[1] == "_all_docs"
	if len(args) != 3 && !allDocs {
		return c.usageError(c.Name(), "This command takes three arguments: <db> <ddoc> <view>")
	}

	opts := map[string]interface{}{}
	for name, value := range map[string]string{"key": key, "startkey": startKey, "endkey": endKey} {
		if value == "" {
			continue
		}
		k, err := parseKey(value)
		if err != nil {
			return c.usageError(c.Name(), fmt.Sprintf("Invalid -%s: %s", name, err))
		}
		opts[name] = k
	}
	if reduce != "" {
		if reduce != "true" && reduce != "false" {
			return c.usageError(c.Name(), "Invalid -reduce: must be true or false")
		}
		opts["reduce"] = reduce
	}
	if includeDocs {
		opts["include_docs"] = true
	}
	if limit > 0 {
		opts["limit"] = limit
	}

	db, err := c.Meta.DB(args[0])
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	var result *couchdb.ViewResult
	if allDocs {
		result, err = db.AllDocs(ctx, opts)
	} else {
		result, err = db.Query(ctx, args[1], args[2], opts)
	}
	if err != nil {
		return c.requestError("querying view", err)
	}
	for _, row := range result.Rows {
		line, err := json.Marshal(row)
		if err != nil {
			return c.requestError("formatting row", err)
		}
		c.Ui.Output(string(line))
	}
	return exitOK
}

// parseKey parses a JSON array into a complex key. Empty object and empty
// array components become the EmptyObject and EmptyArray sentinels.
func parseKey(s string) (*couchdb.ComplexKey, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(s), &parts); err != nil {
		return nil, errors.Wrap(err, "key must be a JSON array")
	}
	if parts == nil {
		return nil, errors.New("key must be a JSON array")
	}
	components := make([]interface{}, len(parts))
	for i, part := range parts {
		compact := &bytes.Buffer{}
		if err := json.Compact(compact, part); err != nil {
			return nil, err
		}
		switch compact.String() {
		case "{}":
			components[i] = couchdb.EmptyObject()
		case "[]":
			components[i] = couchdb.EmptyArray()
		default:
			components[i] = couchdb.Literal(json.RawMessage(compact.Bytes()))
		}
	}
	return couchdb.Key(components...), nil
}
