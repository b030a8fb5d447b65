package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// ExternalRecord is one record as returned by the integration platform.
type ExternalRecord struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Fields map[string]interface{} `json:"fields"`
}

// ListRecords fetches all records for an integration action from the platform
// API. The request is bounded by the client's timeout; pass a context with a
// tighter deadline to bound it further.
func (c *Client) ListRecords(ctx context.Context, token, integrationKey, actionKey, instanceKey string) ([]*ExternalRecord, error) {
	u := fmt.Sprintf("%s/v1/integrations/%s/actions/%s/records", c.apiURL, url.PathEscape(integrationKey), url.PathEscape(actionKey))
	if instanceKey != "" {
		u += "?instance_key=" + url.QueryEscape(instanceKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("platform list records returned %d", resp.StatusCode)
	}

	body := struct {
		Records []*ExternalRecord `json:"records"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.WithStack(err)
	}

	return body.Records, nil
}
