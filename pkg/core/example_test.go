package core_test

import (
	"fmt"
	"os"

	"github.com/redactyl/scangate/pkg/core"
)

// ExampleReduce shows suppression and deduplication on an already fetched
// alert list.
func ExampleReduce() {
	alerts := []core.Finding{
		{CWEID: 79, Title: "Cross Site Scripting (Reflected)", URL: "/search", Param: "q", Risk: core.RiskHigh, Description: "first"},
		{CWEID: 79, Title: "Cross Site Scripting (Reflected)", URL: "/search", Param: "q", Risk: core.RiskHigh, Description: "second"},
		{CWEID: 89, Title: "SQL Injection", URL: "/item", Param: "id", Risk: core.RiskHigh},
	}
	rules := []core.FalsePositiveRule{{URL: "/item", Param: "id", CWEID: "89"}}

	kept := core.Reduce(alerts, rules, nil)
	fmt.Println(len(kept))
	// Output: 1
}

// ExampleAssertNoRiskAtOrAbove demonstrates the risk gate message.
func ExampleAssertNoRiskAtOrAbove() {
	findings := []core.Finding{
		{CWEID: 16, Title: "Header Missing", URL: "/", Risk: core.RiskLow},
		{CWEID: 79, Title: "Cross Site Scripting (Reflected)", URL: "/search", Param: "q", Risk: core.RiskHigh},
	}
	if err := core.AssertNoRiskAtOrAbove(findings, core.RiskHigh); err != nil {
		fmt.Fprint(os.Stdout, err.Error())
	}
	// Output:
	// 1 High or higher risk vulnerabilities found.
	// Details:
	// Cross Site Scripting (Reflected)
	// URL: /search
	// Parameter: q
	// CWE: 79
}
