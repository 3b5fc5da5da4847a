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

// Command couchctl manages databases and documents on a CouchDB server.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"

	couchdb "github.com/go-kivik/couchclient"
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

// Run executes the command line, and returns the exit status.
func Run(args []string) int {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
	c := cli.NewCLI("couchctl", couchdb.Version)
	c.Args = args
	c.Commands = Commands(&Meta{Ui: ui})

	code, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err)
		return 1
	}
	return code
}

// Commands returns the factories for all couchctl subcommands.
func Commands(meta *Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"dbs": func() (cli.Command, error) {
			return &DBsCommand{Meta: *meta}, nil
		},
		"create-db": func() (cli.Command, error) {
			return &CreateDBCommand{Meta: *meta}, nil
		},
		"delete-db": func() (cli.Command, error) {
			return &DeleteDBCommand{Meta: *meta}, nil
		},
		"db-info": func() (cli.Command, error) {
			return &DBInfoCommand{Meta: *meta}, nil
		},
		"get": func() (cli.Command, error) {
			return &GetCommand{Meta: *meta}, nil
		},
		"put": func() (cli.Command, error) {
			return &PutCommand{Meta: *meta}, nil
		},
		"delete": func() (cli.Command, error) {
			return &DeleteCommand{Meta: *meta}, nil
		},
		"bulk": func() (cli.Command, error) {
			return &BulkCommand{Meta: *meta}, nil
		},
		"view": func() (cli.Command, error) {
			return &ViewCommand{Meta: *meta}, nil
		},
	}
}
