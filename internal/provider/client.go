package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/serve/httpclient"
)

// ClearanceStatus is the tri-state outcome of a provider clearance query. Errors are the
// third state and travel through the error return.
type ClearanceStatus string

const (
	ClearanceStatusConfirmed ClearanceStatus = "CONFIRMED"
	ClearanceStatusNotYet    ClearanceStatus = "NOT_YET"
)

const queryClearanceOp = "queryClearance"

// ClearanceRequest identifies the payment attempt being queried at the provider.
type ClearanceRequest struct {
	Currency    string
	ProviderRef string
	PaymentType string
}

//go:generate mockery --name=ClientInterface --case=underscore --structname=MockClient --inpackage
type ClientInterface interface {
	QueryClearance(ctx context.Context, req ClearanceRequest) (ClearanceStatus, error)
}

// Client queries the payment provider's clearance API. Every non-2xx response, transport
// failure or malformed body is returned as an error so the retrier can back off and retry.
type Client struct {
	BasePath       string
	adminID        string
	adminSecret    string
	httpClient     httpclient.HTTPClientInterface
	monitorService monitor.MonitorServiceInterface
}

type ClientOptions struct {
	BasePath       string
	AdminID        string
	AdminSecret    string
	Timeout        time.Duration
	MonitorService monitor.MonitorServiceInterface
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BasePath == "" {
		return nil, fmt.Errorf("provider base path is empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		BasePath:       opts.BasePath,
		adminID:        opts.AdminID,
		adminSecret:    opts.AdminSecret,
		httpClient:     httpclient.NewClientWithTimeout(opts.Timeout),
		monitorService: opts.MonitorService,
	}, nil
}

type clearanceParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type clearanceRequestBody struct {
	Op     string           `json:"op"`
	Params []clearanceParam `json:"params"`
}

// clearanceResponse covers the provider's response dialects. `result` is either a bare
// boolean or an object carrying a status string.
type clearanceResponse struct {
	Result  json.RawMessage `json:"result"`
	Success *bool           `json:"success"`
	Status  string          `json:"status"`
}

func (r clearanceResponse) indicatesCleared() bool {
	if len(r.Result) > 0 {
		var resultBool bool
		if err := json.Unmarshal(r.Result, &resultBool); err == nil && resultBool {
			return true
		}

		var resultObj struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(r.Result, &resultObj); err == nil && resultObj.Status == "completed" {
			return true
		}
	}

	if r.Success != nil && *r.Success {
		return true
	}

	return r.Status == "success"
}

// QueryClearance asks the provider whether the payment for req has cleared. A response the
// engine can parse but that carries no success indicator means the provider still considers
// the payment pending.
func (c *Client) QueryClearance(ctx context.Context, req ClearanceRequest) (ClearanceStatus, error) {
	if req.ProviderRef == "" {
		return "", fmt.Errorf("provider reference is empty")
	}

	body := clearanceRequestBody{
		Op: queryClearanceOp,
		Params: []clearanceParam{
			{Name: "currency", Value: req.Currency},
			{Name: "txid", Value: req.ProviderRef},
			{Name: "paymenttype", Value: req.PaymentType},
		},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshalling clearance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BasePath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating clearance request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("admin", c.adminID)
	httpReq.Header.Set("adminpwd", c.adminSecret)

	startedAt := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startedAt)
	if err != nil {
		c.recordMetrics(duration, "transport_error", 0)
		return "", fmt.Errorf("submitting clearance query: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordMetrics(duration, "read_error", resp.StatusCode)
		return "", fmt.Errorf("reading clearance response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordMetrics(duration, "http_error", resp.StatusCode)
		return "", fmt.Errorf("provider responded status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed clearanceResponse
	if err = json.Unmarshal(respBody, &parsed); err != nil {
		c.recordMetrics(duration, "malformed", resp.StatusCode)
		return "", fmt.Errorf("unmarshalling clearance response: %w", err)
	}

	if parsed.indicatesCleared() {
		c.recordMetrics(duration, "confirmed", resp.StatusCode)
		return ClearanceStatusConfirmed, nil
	}

	c.recordMetrics(duration, "not_yet", resp.StatusCode)
	return ClearanceStatusNotYet, nil
}

func (c *Client) recordMetrics(duration time.Duration, status string, statusCode int) {
	if c.monitorService == nil {
		return
	}

	labels := monitor.ProviderQueryLabels{
		Status:     status,
		StatusCode: strconv.Itoa(statusCode),
		Phase:      "query",
	}

	if err := c.monitorService.MonitorHistogram(duration.Seconds(), monitor.ProviderQueryDurationTag, labels.ToMap()); err != nil {
		log.Errorf("monitoring provider query duration: %v", err)
	}
	if err := c.monitorService.MonitorCounters(monitor.ProviderQueriesTotalTag, labels.ToMap()); err != nil {
		log.Errorf("monitoring provider query counter: %v", err)
	}
}

var _ ClientInterface = (*Client)(nil)
