package extract_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/extract"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

func TestClient_Extract(t *testing.T) {
	var gotAuth, gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotRef = body["receipt_ref"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"amount":"480.00","fees":"5.50","recipient":"Ayşe Yılmaz","reference":"TR-991","confidence":0.93}`))
	}))
	defer srv.Close()

	c := extract.NewClient(srv.URL+"/", "secret-key", time.Second)
	res, err := c.Extract(context.Background(), "receipts/2024/03/abc.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "receipts/2024/03/abc.pdf", gotRef)
	assert.True(t, res.Success)
	assert.Equal(t, "480", res.Amount.String())
	assert.Equal(t, "5.5", res.Fees.String())
	assert.Equal(t, "TR-991", res.Reference)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
}

func TestClient_FailuresAreServiceUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"too slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"success":true}`))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := extract.NewClient(srv.URL, "", 50*time.Millisecond)
			_, err := c.Extract(context.Background(), "r")
			assert.ErrorIs(t, err, ledger.ErrExternalServiceUnavailable)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := extract.NewClient("", "", 0).Extract(context.Background(), "r")
	assert.ErrorIs(t, err, ledger.ErrExternalServiceUnavailable)

	_, err = extract.Disabled{}.Extract(context.Background(), "r")
	assert.ErrorIs(t, err, ledger.ErrExternalServiceUnavailable)
}
