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
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	couchdb "github.com/go-kivik/couchclient"
	"github.com/go-kivik/couchclient/chttp"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "COUCHCTL_CONFIG"

// fileConfig is the layout of the couchctl config file.
type fileConfig struct {
	DSN       string             `yaml:"dsn"`
	Auth      couchdb.AuthConfig `yaml:"auth"`
	TLS       *chttp.TLSConfig   `yaml:"tls"`
	Timeout   string             `yaml:"timeout"`
	UserAgent string             `yaml:"user_agent"`
	LogLevel  string             `yaml:"log_level"`
}

func defaultConfig() *fileConfig {
	return &fileConfig{
		DSN:      "http://localhost:5984/",
		LogLevel: "warn",
	}
}

// loadConfig reads the config file at path. An empty path, or a file that
// does not exist, yields the defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// sessionConfig converts the file layout to a couchdb.Config.
func (c *fileConfig) sessionConfig() (*couchdb.Config, error) {
	cfg := &couchdb.Config{
		DSN:       c.DSN,
		Auth:      c.Auth,
		TLS:       c.TLS,
		UserAgent: c.UserAgent,
	}
	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, errors.Wrap(err, "invalid timeout")
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}
