package httphandler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/verification"
)

func newVerificationRouter(engineMock *MockVerificationEngine) *chi.Mux {
	handler := VerificationHandler{Engine: engineMock}
	r := chi.NewRouter()
	r.Post("/verifications/{reference}", handler.PostVerification)
	r.Get("/verifications/{reference}", handler.GetVerification)
	return r
}

func Test_VerificationHandler_PostVerification(t *testing.T) {
	validBody := `{
		"senderName": "Aisha Bello",
		"senderEmail": "aisha@example.com",
		"currency": "NGN",
		"providerTxId": "prov-abc",
		"paymentType": "bank",
		"amount": "150.00",
		"successUrl": "https://merchant.example.com/callback"
	}`

	t.Run("a malformed body is a 400", func(t *testing.T) {
		engineMock := &MockVerificationEngine{}
		r := newVerificationRouter(engineMock)

		req := httptest.NewRequest(http.MethodPost, "/verifications/TX123", strings.NewReader(`{invalid`))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		engineMock.AssertNotCalled(t, "StartVerification", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("field validation failures carry extras", func(t *testing.T) {
		engineMock := &MockVerificationEngine{}
		r := newVerificationRouter(engineMock)

		body := `{
			"currency": "XYZ",
			"amount": "-5",
			"senderEmail": "not-an-email",
			"paymentType": "cash",
			"successUrl": "ftp://nope"
		}`
		req := httptest.NewRequest(http.MethodPost, "/verifications/TX123", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"error": "Request invalid",
			"extras": {
				"providerTxId": "providerTxId is required",
				"amount": "the provided amount must be greater than zero",
				"currency": "invalid currency: XYZ",
				"paymentType": "invalid payment method: cash",
				"senderEmail": "the provided email is not valid",
				"successUrl": "\"ftp://nope\" is not a valid http(s) URL"
			}
		}`, string(respBody))
		engineMock.AssertNotCalled(t, "StartVerification", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("engine errors map to HTTP statuses", func(t *testing.T) {
		testCases := []struct {
			engineError    error
			expectedStatus int
			expectedError  string
		}{
			{verification.ErrNotFound, http.StatusNotFound, "Resource not found."},
			{verification.ErrInvalidState, http.StatusBadRequest, verification.ErrInvalidState.Error()},
			{verification.ErrCurrencyMismatch, http.StatusBadRequest, verification.ErrCurrencyMismatch.Error()},
			{verification.ErrAmountMismatch, http.StatusBadRequest, verification.ErrAmountMismatch.Error()},
			{assert.AnError, http.StatusInternalServerError, "An internal error occurred while processing this request."},
		}

		for _, tc := range testCases {
			t.Run(tc.expectedError, func(t *testing.T) {
				engineMock := &MockVerificationEngine{}
				engineMock.On("StartVerification", mock.Anything, "TX123", mock.Anything).Return(nil, tc.engineError).Once()
				r := newVerificationRouter(engineMock)

				req := httptest.NewRequest(http.MethodPost, "/verifications/TX123", strings.NewReader(validBody))
				rr := httptest.NewRecorder()
				r.ServeHTTP(rr, req)

				assert.Equal(t, tc.expectedStatus, rr.Code)
				assert.JSONEq(t, `{"error": "`+tc.expectedError+`"}`, rr.Body.String())
			})
		}
	})

	t.Run("🎉 returns the polling schedule", func(t *testing.T) {
		engineMock := &MockVerificationEngine{}
		engineMock.
			On("StartVerification", mock.Anything, "TX123", verification.VerificationPayload{
				SenderName:   "Aisha Bello",
				SenderEmail:  "aisha@example.com",
				Currency:     "NGN",
				ProviderTxID: "prov-abc",
				PaymentType:  "bank",
				Amount:       "150.00",
				SuccessURL:   "https://merchant.example.com/callback",
			}).
			Return(&verification.Schedule{
				Phase:        "immediate",
				PollInterval: 3 * time.Second,
				MaxDuration:  15 * time.Minute,
			}, nil).
			Once()
		r := newVerificationRouter(engineMock)

		req := httptest.NewRequest(http.MethodPost, "/verifications/TX123", strings.NewReader(validBody))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"phase": "immediate",
			"pollIntervalMs": 3000,
			"maxDurationMs": 900000
		}`, rr.Body.String())
		engineMock.AssertExpectations(t)
	})
}

func Test_VerificationHandler_GetVerification(t *testing.T) {
	t.Run("unknown reference is a 404", func(t *testing.T) {
		engineMock := &MockVerificationEngine{}
		engineMock.On("GetStatus", mock.Anything, "TX404").Return(nil, verification.ErrNotFound).Once()
		r := newVerificationRouter(engineMock)

		req := httptest.NewRequest(http.MethodGet, "/verifications/TX404", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("🎉 renders the status snapshot", func(t *testing.T) {
		providerRef := "prov-abc"
		startedAt := time.Date(2025, 4, 1, 12, 5, 0, 0, time.UTC)

		engineMock := &MockVerificationEngine{}
		engineMock.
			On("GetStatus", mock.Anything, "TX123").
			Return(&verification.StatusSnapshot{
				State:                 data.PendingTransactionStatus,
				Amount:                "150.00",
				Currency:              data.CurrencyNGN,
				ProviderRef:           &providerRef,
				VerificationStartedAt: &startedAt,
				ExpiresAt:             time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC),
			}, nil).
			Once()
		r := newVerificationRouter(engineMock)

		req := httptest.NewRequest(http.MethodGet, "/verifications/TX123", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"state": "PENDING",
			"amount": "150.00",
			"currency": "NGN",
			"providerRef": "prov-abc",
			"senderName": null,
			"senderEmail": null,
			"senderPhone": null,
			"verificationStartedAt": "2025-04-01T12:05:00Z",
			"lastVerificationCheck": null,
			"expiresAt": "2025-04-02T12:00:00Z"
		}`, rr.Body.String())
	})
}
