package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// verifySubscription resolves the caller's subscription tier from the
// verification endpoint. Any failure or absence yields nil, never an
// error: tier resolution must not block the call.
func (c *Client) verifySubscription(ctx context.Context, token string) *int {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.verifyURL+"/verify", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("verification unreachable", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	var body struct {
		Sub   any    `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}

	return parseTier(body.Sub)
}

// parseTier accepts the sub claim as a JSON number or numeric string
// and rejects anything negative or unparseable.
func parseTier(sub any) *int {
	var tier int
	switch v := sub.(type) {
	case float64:
		tier = int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil
		}
		tier = n
	default:
		return nil
	}
	if tier < 0 {
		return nil
	}
	return &tier
}
