package jama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestToken performs the OAuth2 client_credentials grant against the
// instance's token endpoint. The client authenticates itself with HTTP
// Basic auth per RFC 6749 section 4.4.
//
// A non-200 answer is not an error: the reply carries the status and raw
// body for the caller to present. The returned error covers transport
// failures and a 200 body that cannot be decoded.
func (c *Client) RequestToken(ctx context.Context) (*TokenReply, error) {
	data := url.Values{
		"grant_type": {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.TokenURL(),
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	reply := &TokenReply{
		StatusCode: resp.StatusCode,
		RawBody:    bodyBytes,
	}

	if resp.StatusCode != http.StatusOK {
		return reply, nil
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	reply.Token = &tokenResp

	return reply, nil
}
