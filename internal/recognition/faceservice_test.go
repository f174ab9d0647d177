package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaceService_Identify(t *testing.T) {
	var got struct {
		Target  wireImage       `json:"target"`
		Gallery []wireReference `json:"gallery"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identify", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"matched": true, "employee_id": "E1", "employee_name": "Jane Doe", "confidence": 0.93}`))
	}))
	defer srv.Close()

	c := NewFaceService(srv.URL, "secret", time.Second, false)
	gallery := []Reference{
		{EmployeeID: "E1", Name: "Jane Doe", Image: Image{Data: []byte("ref"), MIMEType: "image/png"}},
	}
	out, err := c.Identify(context.Background(), Image{Data: []byte("target"), MIMEType: "image/jpeg"}, gallery)
	require.NoError(t, err)

	assert.Equal(t, Outcome{Matched: true, EmployeeID: "E1", EmployeeName: "Jane Doe", Confidence: 0.93}, out)
	require.Len(t, got.Gallery, 1)
	assert.Equal(t, "E1", got.Gallery[0].EmployeeID)
	assert.Equal(t, "image/jpeg", got.Target.MIMEType)
}

func TestFaceService_ErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "bad key", ErrCredentialMissing},
		{"forbidden", http.StatusForbidden, "bad key", ErrCredentialMissing},
		{"rate limited", http.StatusTooManyRequests, "slow down", ErrQuotaExceeded},
		{"server error", http.StatusBadGateway, "upstream", ErrTransport},
		{"garbage", http.StatusOK, "<html>", ErrMalformedResponse},
		{"match without name", http.StatusOK, `{"matched": true, "employee_id": "E1"}`, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewFaceService(srv.URL, "secret", time.Second, false)
			_, err := c.Identify(context.Background(), Image{Data: []byte("x")}, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFaceService_Transport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewFaceService(addr, "secret", time.Second, false)
	_, err := c.Identify(context.Background(), Image{Data: []byte("x")}, nil)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestFaceService_MissingKey(t *testing.T) {
	c := NewFaceService("http://127.0.0.1:1", "", time.Second, false)
	_, err := c.Identify(context.Background(), Image{}, nil)
	assert.ErrorIs(t, err, ErrCredentialMissing)
}

func TestFaceService_Skip(t *testing.T) {
	c := NewFaceService("", "", 0, true)
	require.NoError(t, c.Health(context.Background()))

	out, err := c.Identify(context.Background(), Image{}, []Reference{{EmployeeID: "E9", Name: "Mock"}})
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.Equal(t, "E9", out.EmployeeID)

	out, err = c.Identify(context.Background(), Image{}, nil)
	require.NoError(t, err)
	assert.False(t, out.Matched)
}

func TestFaceService_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewFaceService(srv.URL, "k", time.Second, false).Health(context.Background())
	assert.ErrorContains(t, err, "unhealthy")
}
