package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/phorium/phorium/internal/handler/dto"
)

func creditRouter(ledger Ledger) http.Handler {
	h := NewCreditHandler(ledger, discardLogger())
	r := chi.NewRouter()
	r.Post("/api/credits/use", h.Use)
	r.Get("/api/credits/{userID}", h.Balance)
	r.Get("/api/credits/{userID}/history", h.History)
	return r
}

func TestCreditHandler_Use(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantCode    string
		wantBalance int64
	}{
		{"debit", `{"user_id":"u1","amount":60}`, http.StatusOK, "", 40},
		{"zero is a read", `{"user_id":"u1","amount":0}`, http.StatusOK, "", 100},
		{"negative is a read", `{"user_id":"u1","amount":-5}`, http.StatusOK, "", 100},
		{"missing account reads zero", `{"user_id":"ghost","amount":0}`, http.StatusOK, "", 0},
		{"insufficient", `{"user_id":"u1","amount":101}`, http.StatusForbidden, "INSUFFICIENT_CREDITS", 100},
		{"missing account on debit", `{"user_id":"ghost","amount":1}`, http.StatusBadRequest, "ACCOUNT_NOT_FOUND", 0},
		{"fractional amount", `{"user_id":"u1","amount":1.5}`, http.StatusBadRequest, "INVALID_AMOUNT", 0},
		{"missing amount", `{"user_id":"u1"}`, http.StatusBadRequest, "INVALID_AMOUNT", 0},
		{"missing user", `{"amount":1}`, http.StatusBadRequest, "INVALID_USER_ID", 0},
		{"bad json", `{"user_id":`, http.StatusBadRequest, "INVALID_JSON", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			ledger.balances["u1"] = 100

			req := httptest.NewRequest(http.MethodPost, "/api/credits/use", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			creditRouter(ledger).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantCode == "" {
				var resp dto.BalanceResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if !resp.OK || resp.Balance != tt.wantBalance {
					t.Errorf("response = %+v, want ok balance %d", resp, tt.wantBalance)
				}
				return
			}

			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if tt.wantCode == "INSUFFICIENT_CREDITS" {
				if body.Balance == nil || *body.Balance != tt.wantBalance {
					t.Errorf("balance = %v, want %d", body.Balance, tt.wantBalance)
				}
			}
		})
	}
}

func TestCreditHandler_Use_BackendFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.err = errors.New("connection reset")

	req := httptest.NewRequest(http.MethodPost, "/api/credits/use", strings.NewReader(`{"user_id":"u1","amount":5}`))
	rec := httptest.NewRecorder()
	creditRouter(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %s", body.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("internal error detail leaked to client")
	}
}

func TestCreditHandler_Balance(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balances["u1"] = 42

	rec := httptest.NewRecorder()
	creditRouter(ledger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/credits/u1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp dto.BalanceResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Balance != 42 {
		t.Errorf("balance = %d, want 42", resp.Balance)
	}
}

func TestCreditHandler_History_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	creditRouter(newFakeLedger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/credits/u1/history?limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Errorf("body = %s, want empty entries array", rec.Body.String())
	}
}
