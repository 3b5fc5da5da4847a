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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	couchdb "github.com/go-kivik/couchclient"
)

type GetCommand struct {
	Meta
}

func (c *GetCommand) Help() string {
	helpText := `
Usage: couchctl get [options] <db> <doc id>

  Fetch a document, and print it as JSON.

General Options:

` + generalOptionsUsage + `

Get Options:

  -rev=<rev>
    Fetch a specific revision of the document.`
	return strings.TrimSpace(helpText)
}

func (c *GetCommand) Synopsis() string { return "Fetch a document" }

func (c *GetCommand) Name() string { return "get" }

func (c *GetCommand) Run(args []string) int {
	var rev string
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&rev, "rev", "", "")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 2 {
		return c.usageError(c.Name(), "This command takes two arguments: <db> <doc id>")
	}
	db, err := c.Meta.DB(args[0])
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	var opts map[string]interface{}
	if rev != "" {
		opts = map[string]interface{}{"rev": rev}
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	var doc map[string]interface{}
	if err := db.Get(ctx, args[1], &doc, opts); err != nil {
		return c.requestError("fetching document", err)
	}
	if err := c.outputJSON(doc); err != nil {
		return c.requestError("formatting document", err)
	}
	return exitOK
}

type PutCommand struct {
	Meta
}

func (c *PutCommand) Help() string {
	helpText := `
Usage: couchctl put [options] <db> <doc id> <json>

  Create or update a document, and print the new revision. If <json> is "-",
  the document is read from stdin. To update an existing document, include
  its current _rev.

General Options:

` + generalOptionsUsage
	return strings.TrimSpace(helpText)
}

func (c *PutCommand) Synopsis() string { return "Store a document" }

func (c *PutCommand) Name() string { return "put" }

func (c *PutCommand) Run(args []string) int {
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 3 {
		return c.usageError(c.Name(), "This command takes three arguments: <db> <doc id> <json>")
	}
	doc, err := readJSON(args[2], os.Stdin)
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error reading document: %s", err))
	}
	db, err := c.Meta.DB(args[0])
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	rev, err := db.Put(ctx, args[1], doc, nil)
	if err != nil {
		return c.requestError("storing document", err)
	}
	c.Ui.Output(rev)
	return exitOK
}

type DeleteCommand struct {
	Meta
}

func (c *DeleteCommand) Help() string {
	helpText := `
Usage: couchctl delete [options] <db> <doc id>

  Delete a document, and print the revision of the deletion stub.

General Options:

` + generalOptionsUsage + `

Delete Options:

  -rev=<rev>
    The revision to delete. Defaults to the current revision.`
	return strings.TrimSpace(helpText)
}

func (c *DeleteCommand) Synopsis() string { return "Delete a document" }

func (c *DeleteCommand) Name() string { return "delete" }

func (c *DeleteCommand) Run(args []string) int {
	var rev string
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&rev, "rev", "", "")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 2 {
		return c.usageError(c.Name(), "This command takes two arguments: <db> <doc id>")
	}
	db, err := c.Meta.DB(args[0])
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	if rev == "" {
		if rev, err = db.Rev(ctx, args[1]); err != nil {
			return c.requestError("looking up revision", err)
		}
	}
	newRev, err := db.Delete(ctx, args[1], rev, nil)
	if err != nil {
		return c.requestError("deleting document", err)
	}
	c.Ui.Output(newRev)
	return exitOK
}

type BulkCommand struct {
	Meta
}

func (c *BulkCommand) Help() string {
	helpText := `
Usage: couchctl bulk [options] <db> <file>

  Store a JSON array of documents in a single request. If <file> is "-", the
  documents are read from stdin. One line is printed per document, with
  either its new revision or the reason it was rejected.

General Options:

` + generalOptionsUsage + `

Bulk Options:

  -full-commit
    Ask the server to commit the changes to disk before responding.`
	return strings.TrimSpace(helpText)
}

func (c *BulkCommand) Synopsis() string { return "Store many documents" }

func (c *BulkCommand) Name() string { return "bulk" }

func (c *BulkCommand) Run(args []string) int {
	var fullCommit bool
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.BoolVar(&fullCommit, "full-commit", false, "")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 2 {
		return c.usageError(c.Name(), "This command takes two arguments: <db> <file>")
	}
	raw, err := readInput(args[1], os.Stdin, true)
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error reading documents: %s", err))
	}
	var rawDocs []json.RawMessage
	if err := json.Unmarshal(raw, &rawDocs); err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Documents must be a JSON array: %s", err))
	}
	docs := make([]interface{}, len(rawDocs))
	for i, doc := range rawDocs {
		docs[i] = doc
	}
	db, err := c.Meta.DB(args[0])
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	var opts map[string]interface{}
	if fullCommit {
		opts = map[string]interface{}{couchdb.OptionFullCommit: true}
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	results, err := db.BulkDocs(ctx, docs, opts)
	if err != nil {
		return c.requestError("storing documents", err)
	}
	failed := false
	for _, result := range results {
		if result.Error != nil {
			failed = true
			c.Ui.Error(fmt.Sprintf("%s: %s", result.ID, result.Error))
			continue
		}
		c.Ui.Output(fmt.Sprintf("%s %s", result.ID, result.Rev))
	}
	if failed {
		return exitRequestError
	}
	return exitOK
}

// readJSON returns the JSON document in arg, or read from stdin if arg is "-".
func readJSON(arg string, stdin io.Reader) (json.RawMessage, error) {
	raw, err := readInput(arg, stdin, false)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, errors.New("invalid JSON")
	}
	return json.RawMessage(raw), nil
}

// readInput returns the content named by arg: stdin for "-", otherwise the
// file arg if isFile is set, or arg itself.
func readInput(arg string, stdin io.Reader, isFile bool) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case isFile:
		return os.ReadFile(arg)
	}
	return []byte(arg), nil
}
