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

package chttp

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-rootcerts"
	"github.com/pkg/errors"
)

// TLSConfig holds the TLS settings used to reach a CouchDB server over https.
type TLSConfig struct {
	// CAFile is the path to a PEM-encoded CA bundle.
	CAFile string `yaml:"ca_file"`

	// CAPath is a directory of PEM-encoded CA certificates.
	CAPath string `yaml:"ca_path"`

	// ServerName overrides the name used to verify the server certificate.
	ServerName string `yaml:"server_name"`

	// Insecure disables certificate verification.
	Insecure bool `yaml:"insecure"`
}

// NewHTTPClient returns a pooled *http.Client, with the transport configured
// according to tlsConf, which may be nil. A zero timeout means no timeout.
func NewHTTPClient(tlsConf *TLSConfig, timeout time.Duration) (*http.Client, error) {
	transport := cleanhttp.DefaultPooledTransport()
	if tlsConf != nil {
		config := &tls.Config{
			ServerName:         tlsConf.ServerName,
			InsecureSkipVerify: tlsConf.Insecure, // nolint: gosec
		}
		err := rootcerts.ConfigureTLS(config, &rootcerts.Config{
			CAFile: tlsConf.CAFile,
			CAPath: tlsConf.CAPath,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to configure CA roots")
		}
		transport.TLSClientConfig = config
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
