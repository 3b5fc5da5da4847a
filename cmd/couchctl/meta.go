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
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	couchdb "github.com/go-kivik/couchclient"
)

// Exit statuses.
const (
	exitOK           = 0
	exitUsage        = 1
	exitRequestError = 2
)

// Meta holds the state and flags shared by all commands.
type Meta struct {
	Ui cli.Ui

	// logOutput receives log records. Defaults to os.Stderr.
	logOutput io.Writer

	configPath string
	address    string
	logLevel   string
}

// FlagSet returns a flag set with the general options registered.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.StringVar(&m.configPath, "config", os.Getenv(EnvConfig), "")
	f.StringVar(&m.address, "address", "", "")
	f.StringVar(&m.logLevel, "log-level", "", "")
	f.SetOutput(io.Discard)
	return f
}

const generalOptionsUsage = `  -config=<path>
    Path to a YAML config file. Overrides the COUCHCTL_CONFIG environment
    variable.

  -address=<url>
    The CouchDB server URL. Overrides the dsn set in the config file.

  -log-level=<level>
    One of trace, debug, info, warn or error. Logs are written to stderr.`

// Session loads the config, and connects to the server.
func (m *Meta) Session() (*couchdb.Session, error) {
	fc, err := loadConfig(m.configPath)
	if err != nil {
		return nil, err
	}
	if m.address != "" {
		fc.DSN = m.address
	}
	if m.logLevel != "" {
		fc.LogLevel = m.logLevel
	}
	cfg, err := fc.sessionConfig()
	if err != nil {
		return nil, err
	}
	output := m.logOutput
	if output == nil {
		output = os.Stderr
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "couchctl",
		Level:  hclog.LevelFromString(fc.LogLevel),
		Output: output,
	})
	return couchdb.NewSessionFromConfig(cfg, couchdb.WithLogger(logger))
}

// Context returns a context which is cancelled on interrupt.
func (m *Meta) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// DB connects to the server, and returns a handle to the named database.
func (m *Meta) DB(name string) (*couchdb.Database, error) {
	session, err := m.Session()
	if err != nil {
		return nil, err
	}
	return session.DB(name)
}

// outputJSON writes i to the UI as indented JSON.
func (m *Meta) outputJSON(i interface{}) error {
	out, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}
	m.Ui.Output(string(out))
	return nil
}

// usageError reports a usage problem for the named command, and returns the
// usage exit status.
func (m *Meta) usageError(name, msg string) int {
	m.Ui.Error(msg)
	m.Ui.Error(fmt.Sprintf("For additional help try 'couchctl %s -help'", name))
	return exitUsage
}

// requestError reports a failed operation, and returns the request error exit
// status.
func (m *Meta) requestError(action string, err error) int {
	m.Ui.Error(fmt.Sprintf("Error %s: %s", action, err))
	return exitRequestError
}
