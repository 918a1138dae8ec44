package scangate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ciTemplates = map[string]struct {
	path    string
	content string
}{
	"github": {".github/workflows/scangate.yml", `name: scangate
on: [push, pull_request]
jobs:
  dast:
    runs-on: ubuntu-latest
    services:
      zap:
        image: ghcr.io/zaproxy/zaproxy:stable
        options: --entrypoint zap.sh
        ports: ["8080:8080"]
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: '1.25.x'
      - run: go build -o bin/scangate .
      - run: ./bin/scangate scan --sarif --fail-on medium > scangate.sarif
        env:
          SCANGATE_API_KEY: ${{ secrets.SCANGATE_API_KEY }}
      - uses: github/codeql-action/upload-sarif@v3
        if: always()
        with:
          sarif_file: scangate.sarif
`},
	"gitlab": {".gitlab-ci.yml", `stages: [dast]
dast:
  stage: dast
  image: golang:1.25
  services:
    - name: ghcr.io/zaproxy/zaproxy:stable
      alias: zap
      command: ["zap.sh", "-daemon", "-host", "0.0.0.0", "-port", "8080", "-config", "api.addrs.addr.regex=true"]
  script:
    - go build -o bin/scangate .
    - ./bin/scangate scan --json --fail-on medium | tee scangate-findings.json
  artifacts:
    when: always
    paths:
      - scangate-findings.json
`},
	"bitbucket": {"bitbucket-pipelines.yml", `definitions:
  services:
    zap:
      image: ghcr.io/zaproxy/zaproxy:stable
pipelines:
  default:
    - step:
        name: scangate
        image: golang:1.25
        services:
          - zap
        script:
          - go build -o bin/scangate .
          - ./bin/scangate scan --json --fail-on medium | tee scangate-findings.json
        artifacts:
          - scangate-findings.json
`},
	"azure": {"azure-pipelines.yml", `trigger:
- main

pool:
  vmImage: 'ubuntu-latest'

steps:
- script: docker run -d -p 8080:8080 ghcr.io/zaproxy/zaproxy:stable zap.sh -daemon -host 0.0.0.0 -port 8080
  displayName: 'Start ZAP'
- task: GoTool@0
  inputs:
    version: '1.25.x'
- script: |
    go build -o bin/scangate .
    ./bin/scangate scan --json --fail-on medium | tee scangate-findings.json
  displayName: 'scangate'
- publish: scangate-findings.json
  artifact: scangate-findings
  condition: succeededOrFailed()
`},
}

func init() {
	ci := &cobra.Command{Use: "ci", Short: "CI template helpers for multiple providers"}
	rootCmd.AddCommand(ci)

	var provider string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a CI pipeline template for your provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tpl, ok := ciTemplates[provider]
			if !ok {
				return fmt.Errorf("unknown --provider. Supported: github, gitlab, bitbucket, azure")
			}
			if err := os.MkdirAll(filepath.Dir(tpl.path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(tpl.path, []byte(tpl.content), 0644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", tpl.path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&provider, "provider", "", "CI provider: github | gitlab | bitbucket | azure")
	if err := initCmd.MarkFlagRequired("provider"); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not mark --provider as required:", err)
	}
	ci.AddCommand(initCmd)
}
