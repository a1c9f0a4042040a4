package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/serve/httpclient"
)

func newTestClient(httpClientMock *httpclient.HttpClientMock) *Client {
	return &Client{
		BasePath:    "https://provider.example.com/api",
		adminID:     "admin-id",
		adminSecret: "admin-secret",
		httpClient:  httpClientMock,
	}
}

func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func Test_NewClient(t *testing.T) {
	t.Run("base path is required", func(t *testing.T) {
		_, err := NewClient(ClientOptions{})
		assert.EqualError(t, err, "provider base path is empty")
	})

	t.Run("🎉 creates a client with a default timeout", func(t *testing.T) {
		client, err := NewClient(ClientOptions{BasePath: "https://provider.example.com/api"})
		require.NoError(t, err)
		assert.Equal(t, "https://provider.example.com/api", client.BasePath)
		assert.NotNil(t, client.httpClient)
	})
}

func Test_Client_QueryClearance_wireContract(t *testing.T) {
	ctx := context.Background()
	httpClientMock := &httpclient.HttpClientMock{}
	client := newTestClient(httpClientMock)

	httpClientMock.
		On("Do", mock.AnythingOfType("*http.Request")).
		Run(func(args mock.Arguments) {
			req, ok := args.Get(0).(*http.Request)
			require.True(t, ok)

			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, "https://provider.example.com/api", req.URL.String())
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "admin-id", req.Header.Get("admin"))
			assert.Equal(t, "admin-secret", req.Header.Get("adminpwd"))

			bodyBytes, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			var body clearanceRequestBody
			require.NoError(t, json.Unmarshal(bodyBytes, &body))

			assert.Equal(t, "queryClearance", body.Op)
			assert.Equal(t, []clearanceParam{
				{Name: "currency", Value: "NGN"},
				{Name: "txid", Value: "prov-abc"},
				{Name: "paymenttype", Value: "bank"},
			}, body.Params)
		}).
		Return(jsonResponse(http.StatusOK, `{"result": true}`), nil).
		Once()

	status, err := client.QueryClearance(ctx, ClearanceRequest{
		Currency:    "NGN",
		ProviderRef: "prov-abc",
		PaymentType: "bank",
	})
	require.NoError(t, err)
	assert.Equal(t, ClearanceStatusConfirmed, status)
	httpClientMock.AssertExpectations(t)
}

func Test_Client_QueryClearance_responseDialects(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name           string
		responseBody   string
		expectedStatus ClearanceStatus
	}{
		{
			name:           "result as bare boolean true",
			responseBody:   `{"result": true}`,
			expectedStatus: ClearanceStatusConfirmed,
		},
		{
			name:           "result object with status completed",
			responseBody:   `{"result": {"status": "completed"}}`,
			expectedStatus: ClearanceStatusConfirmed,
		},
		{
			name:           "top-level success flag",
			responseBody:   `{"success": true}`,
			expectedStatus: ClearanceStatusConfirmed,
		},
		{
			name:           "top-level status string",
			responseBody:   `{"status": "success"}`,
			expectedStatus: ClearanceStatusConfirmed,
		},
		{
			name:           "result as bare boolean false",
			responseBody:   `{"result": false}`,
			expectedStatus: ClearanceStatusNotYet,
		},
		{
			name:           "result object still pending",
			responseBody:   `{"result": {"status": "pending"}}`,
			expectedStatus: ClearanceStatusNotYet,
		},
		{
			name:           "success flag false",
			responseBody:   `{"success": false, "status": "pending"}`,
			expectedStatus: ClearanceStatusNotYet,
		},
		{
			name:           "empty object carries no success indicator",
			responseBody:   `{}`,
			expectedStatus: ClearanceStatusNotYet,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpClientMock := &httpclient.HttpClientMock{}
			client := newTestClient(httpClientMock)
			httpClientMock.On("Do", mock.Anything).Return(jsonResponse(http.StatusOK, tc.responseBody), nil).Once()

			status, err := client.QueryClearance(ctx, ClearanceRequest{Currency: "NGN", ProviderRef: "prov-abc"})
			require.NoError(t, err)
			assert.Equal(t, tc.expectedStatus, status)
		})
	}
}

func Test_Client_QueryClearance_errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty provider reference fails before any HTTP call", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		client := newTestClient(httpClientMock)

		_, err := client.QueryClearance(ctx, ClearanceRequest{Currency: "NGN"})
		assert.EqualError(t, err, "provider reference is empty")
		httpClientMock.AssertNotCalled(t, "Do", mock.Anything)
	})

	t.Run("transport errors are surfaced", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		client := newTestClient(httpClientMock)
		httpClientMock.On("Do", mock.Anything).Return(nil, assert.AnError).Once()

		_, err := client.QueryClearance(ctx, ClearanceRequest{Currency: "NGN", ProviderRef: "prov-abc"})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("non-2xx responses are errors, not NOT_YET", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		client := newTestClient(httpClientMock)
		httpClientMock.On("Do", mock.Anything).Return(jsonResponse(http.StatusBadGateway, `upstream down`), nil).Once()

		_, err := client.QueryClearance(ctx, ClearanceRequest{Currency: "NGN", ProviderRef: "prov-abc"})
		assert.EqualError(t, err, "provider responded status 502: upstream down")
	})

	t.Run("malformed bodies are errors, not NOT_YET", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		client := newTestClient(httpClientMock)
		httpClientMock.On("Do", mock.Anything).Return(jsonResponse(http.StatusOK, `<html>maintenance</html>`), nil).Once()

		_, err := client.QueryClearance(ctx, ClearanceRequest{Currency: "NGN", ProviderRef: "prov-abc"})
		assert.ErrorContains(t, err, "unmarshalling clearance response")
	})
}

func Test_RetryingClient_QueryClearance(t *testing.T) {
	ctx := context.Background()
	fastRetries := RetryConfig{
		InitialDelay: 1 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  3,
	}

	t.Run("passes a successful answer straight through", func(t *testing.T) {
		clientMock := &MockClient{}
		clientMock.On("QueryClearance", mock.Anything, mock.Anything).Return(ClearanceStatusConfirmed, nil).Once()

		rc := NewRetryingClient(clientMock, fastRetries)
		status, err := rc.QueryClearance(ctx, ClearanceRequest{ProviderRef: "prov-abc"})
		require.NoError(t, err)
		assert.Equal(t, ClearanceStatusConfirmed, status)
		clientMock.AssertNumberOfCalls(t, "QueryClearance", 1)
	})

	t.Run("🎉 retries transient failures and returns the eventual answer", func(t *testing.T) {
		clientMock := &MockClient{}
		clientMock.On("QueryClearance", mock.Anything, mock.Anything).Return(ClearanceStatus(""), assert.AnError).Twice()
		clientMock.On("QueryClearance", mock.Anything, mock.Anything).Return(ClearanceStatusNotYet, nil).Once()

		rc := NewRetryingClient(clientMock, fastRetries)
		status, err := rc.QueryClearance(ctx, ClearanceRequest{ProviderRef: "prov-abc"})
		require.NoError(t, err)
		assert.Equal(t, ClearanceStatusNotYet, status)
		clientMock.AssertNumberOfCalls(t, "QueryClearance", 3)
	})

	t.Run("surfaces the last error after exhausting the attempts", func(t *testing.T) {
		clientMock := &MockClient{}
		clientMock.On("QueryClearance", mock.Anything, mock.Anything).Return(ClearanceStatus(""), assert.AnError).Times(3)

		rc := NewRetryingClient(clientMock, fastRetries)
		_, err := rc.QueryClearance(ctx, ClearanceRequest{ProviderRef: "prov-abc"})
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "querying clearance after 3 attempts")
		clientMock.AssertNumberOfCalls(t, "QueryClearance", 3)
	})

	t.Run("a zero config falls back to the defaults", func(t *testing.T) {
		rc := NewRetryingClient(&MockClient{}, RetryConfig{})
		assert.Equal(t, DefaultRetryConfig(), rc.config)
	})
}
