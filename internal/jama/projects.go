package jama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// FetchProjects lists the instance's projects using accessToken. The
// bearer header is sent with whatever token value is given, including the
// empty string; a token the server never granted is exactly the condition
// this call probes for.
//
// As with RequestToken, a non-200 answer is data rather than an error.
func (c *Client) FetchProjects(ctx context.Context, accessToken string) (*ProjectsReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProjectsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	reply := &ProjectsReply{
		StatusCode: resp.StatusCode,
		RawBody:    bodyBytes,
	}

	if resp.StatusCode != http.StatusOK {
		return reply, nil
	}

	var page ProjectPage
	if err := json.Unmarshal(bodyBytes, &page); err != nil {
		return nil, fmt.Errorf("failed to decode projects response: %w", err)
	}
	reply.Page = &page

	return reply, nil
}
