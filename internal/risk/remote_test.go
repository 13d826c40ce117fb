package risk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
	"github.com/sheikh-saqib/transactions-service/internal/models"
)

func TestRemoteCall(t *testing.T) {
	var gotQuery, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotCorrelation = r.Header.Get(correlation.Header)
		assert.Equal(t, "/mock/risk/allow", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("false"))
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL+"/mock/risk/", srv.Client())
	ctx := correlation.WithID(context.Background(), "corr-42")

	allowed, err := remote.Call(ctx, Request{Currency: "PEN", Type: models.Debit, Amount: decimal.RequireFromString("100.50")})
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, "amount=100.5&currency=PEN&type=DEBIT", gotQuery)
	assert.Equal(t, "corr-42", gotCorrelation)
}

func TestRemoteCallFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "risk_service_unavailable", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"not a boolean", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"allowed":true}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewRemote(srv.URL, nil).Call(context.Background(), Request{Currency: "PEN", Type: models.Credit, Amount: decimal.NewFromInt(1)})
			assert.Error(t, err)
		})
	}
}

func TestRemoteCallTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemote(url, nil).Call(context.Background(), Request{Currency: "PEN", Type: models.Credit, Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}
