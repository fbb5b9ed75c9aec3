// Package googleads implements the Google (GA4 / Ads) connector.
//
// The flow itself is vanilla OAuth 2.0; the registry entry forces
// access_type=offline and prompt=consent so a refresh token is issued on
// every grant (long-running reporting access depends on it). The deviation
// lives in delegated-access verification, which must traverse the nested
// account -> property summaries of the Analytics Admin API rather than a
// flat permission check.
package googleads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base

	// AdminBase is the Analytics Admin API root. Overridable in tests.
	AdminBase string
}

// Factory builds the Google connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformGoogle)
	if err != nil {
		return nil, err
	}

	var opts []connectors.Option
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformGoogle, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{
		Base:      base,
		AdminBase: "https://analyticsadmin.googleapis.com/v1beta",
	}, nil
}

type accountSummary struct {
	Account     string `json:"account"`
	DisplayName string `json:"displayName"`
	Properties  []struct {
		Property    string `json:"property"`
		DisplayName string `json:"displayName"`
	} `json:"propertySummaries"`
}

// VerifyClientAccess cross-references the agency token against the GA4
// account summaries. The client is matched by account or property display
// name (ClientEmail) or by a property/account resource id (ClientBizID);
// matched properties come back as assets.
func (c *Connector) VerifyClientAccess(ctx context.Context, req connectors.ClientAccessRequest) (*connectors.ClientAccessResult, error) {
	summaries, err := c.accountSummaries(ctx, req.AgencyToken)
	if err != nil {
		return &connectors.ClientAccessResult{Diagnostic: "listing account summaries failed: " + err.Error()}, nil
	}

	needle := strings.ToLower(strings.TrimSpace(req.ClientEmail))
	wantID := strings.TrimSpace(req.ClientBizID)

	var assets []connectors.Asset
	for _, acc := range summaries {
		accMatch := matches(acc.DisplayName, needle) || (wantID != "" && acc.Account == wantID)
		for _, p := range acc.Properties {
			if accMatch || matches(p.DisplayName, needle) || (wantID != "" && p.Property == wantID) {
				assets = append(assets, connectors.Asset{
					ID:   p.Property,
					Name: p.DisplayName,
					Kind: "property",
				})
			}
		}
	}

	if len(assets) == 0 {
		return &connectors.ClientAccessResult{
			Diagnostic: "no GA4 property matching the client is visible to the agency token",
		}, nil
	}
	return &connectors.ClientAccessResult{
		HasAccess: true,
		Level:     connectors.AccessLevelRead,
		Assets:    assets,
	}, nil
}

func matches(displayName, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(displayName), needle)
}

// accountSummaries pages through the accountSummaries list.
func (c *Connector) accountSummaries(ctx context.Context, token string) ([]accountSummary, error) {
	var (
		out       []accountSummary
		pageToken string
	)

	for {
		raw, err := c.fetchSummaryPage(ctx, token, pageToken)
		if err != nil {
			return nil, err
		}

		var page struct {
			AccountSummaries []accountSummary `json:"accountSummaries"`
			NextPageToken    string           `json:"nextPageToken"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode account summaries: %w", err)
		}

		out = append(out, page.AccountSummaries...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Connector) fetchSummaryPage(ctx context.Context, token, pageToken string) ([]byte, error) {
	u := c.AdminBase + "/accountSummaries?pageSize=200"
	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("admin api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
