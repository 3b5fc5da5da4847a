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
	"fmt"
	"strings"
)

type DBsCommand struct {
	Meta
}

func (c *DBsCommand) Help() string {
	helpText := `
Usage: couchctl dbs [options]

  List the databases on the server, one per line.

General Options:

` + generalOptionsUsage
	return strings.TrimSpace(helpText)
}

func (c *DBsCommand) Synopsis() string { return "List databases" }

func (c *DBsCommand) Name() string { return "dbs" }

func (c *DBsCommand) Run(args []string) int {
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if len(flags.Args()) != 0 {
		return c.usageError(c.Name(), "This command takes no arguments")
	}
	session, err := c.Meta.Session()
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	dbs, err := session.AllDBs(ctx)
	if err != nil {
		return c.requestError("listing databases", err)
	}
	for _, db := range dbs {
		c.Ui.Output(db)
	}
	return exitOK
}

type CreateDBCommand struct {
	Meta
}

func (c *CreateDBCommand) Help() string {
	helpText := `
Usage: couchctl create-db [options] <db>

  Create a database.

General Options:

` + generalOptionsUsage
	return strings.TrimSpace(helpText)
}

func (c *CreateDBCommand) Synopsis() string { return "Create a database" }

func (c *CreateDBCommand) Name() string { return "create-db" }

func (c *CreateDBCommand) Run(args []string) int {
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.usageError(c.Name(), "This command takes one argument: <db>")
	}
	session, err := c.Meta.Session()
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	if err := session.CreateDB(ctx, args[0]); err != nil {
		return c.requestError("creating database", err)
	}
	c.Ui.Output(fmt.Sprintf("Created database %q", args[0]))
	return exitOK
}

type DeleteDBCommand struct {
	Meta
}

func (c *DeleteDBCommand) Help() string {
	helpText := `
Usage: couchctl delete-db [options] <db>

  Delete a database, and all of its documents.

General Options:

` + generalOptionsUsage
	return strings.TrimSpace(helpText)
}

func (c *DeleteDBCommand) Synopsis() string { return "Delete a database" }

func (c *DeleteDBCommand) Name() string { return "delete-db" }

func (c *DeleteDBCommand) Run(args []string) int {
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.usageError(c.Name(), "This command takes one argument: <db>")
	}
	session, err := c.Meta.Session()
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	if err := session.DeleteDB(ctx, args[0]); err != nil {
		return c.requestError("deleting database", err)
	}
	c.Ui.Output(fmt.Sprintf("Deleted database %q", args[0]))
	return exitOK
}

type DBInfoCommand struct {
	Meta
}

func (c *DBInfoCommand) Help() string {
	helpText := `
Usage: couchctl db-info [options] <db>

  Show document counts and sizes for a database.

General Options:

` + generalOptionsUsage
	return strings.TrimSpace(helpText)
}

func (c *DBInfoCommand) Synopsis() string { return "Show database statistics" }

func (c *DBInfoCommand) Name() string { return "db-info" }

func (c *DBInfoCommand) Run(args []string) int {
	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.usageError(c.Name(), "This command takes one argument: <db>")
	}
	db, err := c.Meta.DB(args[0])
	if err != nil {
		return c.usageError(c.Name(), fmt.Sprintf("Error initializing client: %s", err))
	}
	ctx, cancel := c.Meta.Context()
	defer cancel()
	stats, err := db.Stats(ctx)
	if err != nil {
		return c.requestError("reading database info", err)
	}
	c.Ui.Output(fmt.Sprintf("Name          = %s", stats.Name))
	c.Ui.Output(fmt.Sprintf("Documents     = %d", stats.DocCount))
	c.Ui.Output(fmt.Sprintf("Deleted       = %d", stats.DeletedCount))
	c.Ui.Output(fmt.Sprintf("Update Seq    = %s", stats.UpdateSeq))
	c.Ui.Output(fmt.Sprintf("Disk Size     = %d", stats.DiskSize))
	c.Ui.Output(fmt.Sprintf("Active Size   = %d", stats.ActiveSize))
	c.Ui.Output(fmt.Sprintf("External Size = %d", stats.ExternalSize))
	return exitOK
}
