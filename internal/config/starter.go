package config

import (
	"errors"
	"fmt"
	"os"
)

// Starter is the file written by `scangate config init`.
const Starter = `# scangate configuration
scanner:
  api_url: http://127.0.0.1:8080
  # api_key is read from SCANGATE_API_KEY (or a .env file) when unset
  proxy_url: http://127.0.0.1:8080
  rate_limit: 20
  timeout: 30s

base_url: http://localhost:9000/
base_secure_url: https://localhost:9443/

spider:
  max_depth: 5
  threads: 4
  exclude:
    - .*logout.*
  urls:
    - baseurl

policies:
  - name: cross-site-scripting
    strength: HIGH
    threshold: LOW
  - name: sql-injection

passive_scan: true
disable_all_rules: true

false_positives: []
false_positive_files:
  - security/false-positives/*.yml

fail_on: medium
poll_interval: 1s
`

// WriteStarter creates path with Starter. An existing file is left alone
// unless force is set.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.WriteFile(path, []byte(Starter), 0o644)
}
