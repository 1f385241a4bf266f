package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCharge(ctx context.Context, userID uuid.UUID, p domain.CreateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
	return &domain.UnpaidAmount{
		ID:          uuid.New(),
		ClientID:    p.ClientID,
		ProjectID:   p.ProjectID,
		Amount:      p.Amount,
		Description: p.Description,
		IssueDate:   p.IssueDate,
		DueDate:     p.DueDate,
		Status:      domain.UnpaidAmountStatusUnpaid,
	}, nil
}

func TestUnpaidAmountHandler_Create(t *testing.T) {
	clientID := uuid.New()

	tests := []struct {
		name           string
		body           map[string]any
		create         func(ctx context.Context, userID uuid.UUID, p domain.CreateUnpaidAmountParams) (*domain.UnpaidAmount, error)
		expectedStatus int
		expectedField  string
	}{
		{
			name: "created",
			body: map[string]any{
				"clientId":    clientID.String(),
				"amount":      "150.5",
				"description": "  Logo revisions ",
				"issueDate":   "2026-01-10",
				"dueDate":     "2026-02-10",
			},
			create:         echoCharge,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing description",
			body:           map[string]any{"clientId": clientID.String(), "amount": "10", "issueDate": "2026-01-10"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "description",
		},
		{
			name:           "amount not numeric",
			body:           map[string]any{"clientId": clientID.String(), "amount": "ten", "description": "x", "issueDate": "2026-01-10"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "amount",
		},
		{
			name:           "sub-cent amount",
			body:           map[string]any{"clientId": clientID.String(), "amount": "10.005", "description": "x", "issueDate": "2026-01-10"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "amount",
		},
		{
			name:           "amount rounds to zero",
			body:           map[string]any{"clientId": clientID.String(), "amount": "0.001", "description": "x", "issueDate": "2026-01-10"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "amount",
		},
		{
			name:           "amount too large",
			body:           map[string]any{"clientId": clientID.String(), "amount": "99999999999.99", "description": "x", "issueDate": "2026-01-10"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "amount",
		},
		{
			name:           "missing issue date",
			body:           map[string]any{"clientId": clientID.String(), "amount": "10", "description": "x"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "issueDate",
		},
		{
			name: "non-positive amount rejected by service",
			body: map[string]any{"clientId": clientID.String(), "amount": "0", "description": "x", "issueDate": "2026-01-10"},
			create: func(ctx context.Context, userID uuid.UUID, p domain.CreateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
				return nil, domain.WithOp(domain.ErrAmountNotPositive, "unpaid_amount.create")
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUnpaidAmountHandler(&mockUnpaidAmountService{CreateFunc: tt.create}, nil)
			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(t, http.MethodPost, "/api/unpaid-amounts", tt.body, ""))

			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedField != "" {
				_, fields := decodeError(t, rec)
				assert.Contains(t, fields, tt.expectedField)
				return
			}
			if rec.Code != http.StatusCreated {
				return
			}
			var resp unpaidAmountResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "150.50", resp.Amount)
			assert.Equal(t, "Logo revisions", resp.Description)
			assert.Equal(t, "unpaid", resp.Status)
			assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), resp.IssueDate)
			require.NotNil(t, resp.DueDate)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "150.500", want: "150.50"},
		{raw: "9999999999.99", want: "9999999999.99"},
		{raw: "0.01", want: "0.01"},
		{raw: "10.005", wantErr: true},
		{raw: "0.001", wantErr: true},
		{raw: "10000000000", wantErr: true},
		{raw: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount(tt.raw)
			if tt.wantErr {
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				assert.Contains(t, domain.GetValidationFields(err), "amount")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestUnpaidAmountHandler_Update(t *testing.T) {
	id := uuid.New()

	t.Run("partial update", func(t *testing.T) {
		var got domain.UpdateUnpaidAmountParams
		h := NewUnpaidAmountHandler(&mockUnpaidAmountService{
			UpdateFunc: func(ctx context.Context, userID, chargeID uuid.UUID, p domain.UpdateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
				got = p
				return &domain.UnpaidAmount{ID: chargeID, Amount: *p.Amount, Status: domain.UnpaidAmountStatusUnpaid}, nil
			},
		}, nil)

		rec := httptest.NewRecorder()
		h.Update(rec, newRequest(t, http.MethodPatch, "/api/unpaid-amounts/x", map[string]any{"amount": "75"}, id.String()))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, got.Amount)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(75)))
		assert.Nil(t, got.Description)
		assert.Nil(t, got.DueDate)
	})

	t.Run("empty patch", func(t *testing.T) {
		h := NewUnpaidAmountHandler(&mockUnpaidAmountService{}, nil)
		rec := httptest.NewRecorder()
		h.Update(rec, newRequest(t, http.MethodPatch, "/api/unpaid-amounts/x", map[string]any{}, id.String()))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invoiced charge is frozen", func(t *testing.T) {
		h := NewUnpaidAmountHandler(&mockUnpaidAmountService{
			UpdateFunc: func(ctx context.Context, userID, chargeID uuid.UUID, p domain.UpdateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
				return nil, domain.Errorf(domain.ECONFLICT, "unpaid_amount.update", "Only unpaid charges can be edited")
			},
		}, nil)
		rec := httptest.NewRecorder()
		h.Update(rec, newRequest(t, http.MethodPatch, "/api/unpaid-amounts/x", map[string]any{"description": "new"}, id.String()))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestUnpaidAmountHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "deleted", expectedStatus: http.StatusNoContent},
		{name: "invoiced", err: domain.WithOp(domain.ErrUnpaidAmountInvoiced, "unpaid_amount.delete"), expectedStatus: http.StatusConflict},
		{name: "missing", err: domain.WithOp(domain.ErrUnpaidAmountNotFound, "unpaid_amount.delete"), expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUnpaidAmountHandler(&mockUnpaidAmountService{
				DeleteFunc: func(ctx context.Context, userID, id uuid.UUID) error { return tt.err },
			}, nil)
			rec := httptest.NewRecorder()
			h.Delete(rec, newRequest(t, http.MethodDelete, "/api/unpaid-amounts/x", nil, uuid.NewString()))
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestUnpaidAmountHandler_ListForClient(t *testing.T) {
	clientID := uuid.New()

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedFilter *domain.UnpaidAmountStatus
	}{
		{name: "all", expectedStatus: http.StatusOK},
		{name: "filtered", query: "?status=invoiced", expectedStatus: http.StatusOK, expectedFilter: ptr(domain.UnpaidAmountStatusInvoiced)},
		{name: "bad filter", query: "?status=overdue", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFilter *domain.UnpaidAmountStatus
			h := NewUnpaidAmountHandler(&mockUnpaidAmountService{
				ListForClientFunc: func(ctx context.Context, userID, id uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error) {
					gotFilter = status
					return []domain.UnpaidAmount{{ID: uuid.New(), ClientID: id, Amount: decimal.NewFromInt(5)}}, nil
				},
			}, nil)

			rec := httptest.NewRecorder()
			target := "/api/clients/" + clientID.String() + "/unpaid-amounts" + tt.query
			h.ListForClient(rec, newRequest(t, http.MethodGet, target, nil, clientID.String()))

			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.expectedFilter, gotFilter)
		})
	}
}

func ptr[T any](v T) *T { return &v }
