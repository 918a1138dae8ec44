package zap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redactyl/scangate/internal/types"
)

// alert mirrors the element shape of core/view/alerts. ZAP renders every
// field, numeric ones included, as a JSON string.
type alert struct {
	PluginID    string `json:"pluginId"`
	CWEID       string `json:"cweid"`
	WASCID      string `json:"wascid"`
	Alert       string `json:"alert"`
	Name        string `json:"name"`
	Risk        string `json:"risk"`
	Confidence  string `json:"confidence"`
	URL         string `json:"url"`
	Param       string `json:"param"`
	Description string `json:"description"`
	Evidence    string `json:"evidence"`
	Solution    string `json:"solution"`
	Other       string `json:"other"`
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func (a alert) finding() (types.Finding, error) {
	risk, err := types.ParseRisk(a.Risk)
	if err != nil {
		return types.Finding{}, fmt.Errorf("alert %q: %w", a.Alert, err)
	}
	title := a.Alert
	if title == "" {
		title = a.Name
	}
	return types.Finding{
		PluginID:    atoiOrZero(a.PluginID),
		CWEID:       atoiOrZero(a.CWEID),
		WASCID:      atoiOrZero(a.WASCID),
		Title:       title,
		Risk:        risk,
		Confidence:  types.Confidence(a.Confidence),
		URL:         a.URL,
		Param:       a.Param,
		Description: a.Description,
		Evidence:    a.Evidence,
		Solution:    a.Solution,
		Other:       a.Other,
	}, nil
}

// FetchAlerts returns every alert currently held by ZAP in the order it
// reports them.
func (c *Client) FetchAlerts(ctx context.Context) ([]types.Finding, error) {
	var resp struct {
		Alerts []alert `json:"alerts"`
	}
	if err := c.call(ctx, "core", "view", "alerts", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]types.Finding, 0, len(resp.Alerts))
	for _, a := range resp.Alerts {
		f, err := a.finding()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Matches is ZAP's alert equality: same alert name, risk and confidence.
// Descriptions are not compared.
func (c *Client) Matches(a, b types.Finding) bool {
	return a.Title == b.Title && a.Risk == b.Risk && a.Confidence == b.Confidence
}
