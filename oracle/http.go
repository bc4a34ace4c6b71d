package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"launchpad/models"

	"github.com/valyala/fasthttp"
)

// HTTPClient posts queries as JSON to the inference endpoint.
type HTTPClient struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *fasthttp.Client
}

func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		timeout:  timeout,
		client: &fasthttp.Client{
			Name:                "launchpad-oracle",
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type answerRequest struct {
	Query   string      `json:"query"`
	Role    models.Role `json:"role"`
	Context Context     `json:"context"`
}

func (c *HTTPClient) Answer(ctx context.Context, query string, role models.Role, qc Context) (Answer, error) {
	body, err := json.Marshal(answerRequest{Query: query, Role: role, Context: qc})
	if err != nil {
		return Answer{}, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	err = c.client.DoDeadline(req, resp, deadline)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return Answer{}, fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}

	var ans Answer
	if err := json.Unmarshal(resp.Body(), &ans); err != nil {
		return Answer{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(ans.Text) == "" {
		return Answer{}, fmt.Errorf("%w: empty answer", ErrUnavailable)
	}
	return ans, nil
}
