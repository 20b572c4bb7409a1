package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nadmax/teamplan/internal/apperr"
	"github.com/sendgrid/rest"
)

const batchSize = 100

type HTTPClient struct {
	baseURL string
	apiKey  string
	rest    *rest.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

type issueJSON struct {
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
	Status  struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"status"`
	StartDate    string `json:"start_date,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	CustomFields []struct {
		ID    int64           `json:"id"`
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	} `json:"custom_fields"`
}

type issueEnvelope struct {
	Issue issueJSON `json:"issue"`
}

type issueListEnvelope struct {
	Issues     []issueJSON `json:"issues"`
	TotalCount int         `json:"total_count"`
}

type updateEnvelope struct {
	Issue struct {
		StartDate string `json:"start_date"`
		DueDate   string `json:"due_date"`
	} `json:"issue"`
}

func (c *HTTPClient) FetchIssue(ctx context.Context, id int64) (*Issue, error) {
	var env issueEnvelope
	status, err := c.do(ctx, rest.Get, fmt.Sprintf("/issues/%d.json", id), nil, &env)
	if status == http.StatusNotFound {
		return nil, apperr.TaskNotFound("fetch issue", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, err
	}

	issue := env.Issue.toIssue()
	return &issue, nil
}

// FetchIssues returns the issues among ids that exist, in any status.
func (c *HTTPClient) FetchIssues(ctx context.Context, ids []int64) ([]Issue, error) {
	out := make([]Issue, 0, len(ids))
	for startIdx := 0; startIdx < len(ids); startIdx += batchSize {
		endIdx := min(startIdx+batchSize, len(ids))

		parts := make([]string, 0, endIdx-startIdx)
		for _, id := range ids[startIdx:endIdx] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}

		q := map[string]string{
			"issue_id":  strings.Join(parts, ","),
			"status_id": "*",
			"limit":     strconv.Itoa(batchSize),
		}

		var env issueListEnvelope
		if _, err := c.doQuery(ctx, rest.Get, "/issues.json", q, nil, &env); err != nil {
			return nil, err
		}

		for _, raw := range env.Issues {
			out = append(out, raw.toIssue())
		}
	}

	return out, nil
}

func (c *HTTPClient) UpdateIssueDates(ctx context.Context, id int64, start, end time.Time) error {
	var body updateEnvelope
	body.Issue.StartDate = start.Format(DateLayout)
	body.Issue.DueDate = end.Format(DateLayout)

	status, err := c.do(ctx, rest.Put, fmt.Sprintf("/issues/%d.json", id), body, nil)
	if status == http.StatusNotFound {
		return apperr.TaskNotFound("update issue", strconv.FormatInt(id, 10))
	}

	return err
}

func (c *HTTPClient) do(ctx context.Context, method rest.Method, path string, in, out any) (int, error) {
	return c.doQuery(ctx, method, path, nil, in, out)
}

func (c *HTTPClient) doQuery(ctx context.Context, method rest.Method, path string, query map[string]string, in, out any) (int, error) {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal tracker request: %w", err)
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}
	if c.apiKey != "" {
		req.Headers["X-Redmine-API-Key"] = c.apiKey
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach tracker: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("tracker error: %s %s returned status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return resp.StatusCode, nil
	}

	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode tracker response: %w", err)
	}

	return resp.StatusCode, nil
}

func (raw issueJSON) toIssue() Issue {
	issue := Issue{
		ID:         raw.ID,
		Subject:    raw.Subject,
		StatusName: raw.Status.Name,
		StartDate:  parseDate(raw.StartDate),
		DueDate:    parseDate(raw.DueDate),
	}

	for _, f := range raw.CustomFields {
		issue.CustomFields = append(issue.CustomFields, CustomField{
			ID:    f.ID,
			Name:  f.Name,
			Value: fieldValue(f.Value),
		})
	}

	return issue
}

// fieldValue flattens a custom field value, which the tracker sends either as
// a string or as a list of strings for multi-value fields.
func fieldValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ",")
	}

	return ""
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}

	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}

	return &d
}
