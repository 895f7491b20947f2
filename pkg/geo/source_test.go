package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatelens/pkg/model"
	"climatelens/pkg/request"
)

type sourceFunc func(ctx context.Context) (model.Coordinates, error)

func (f sourceFunc) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	return f(ctx)
}

func TestFixed(t *testing.T) {
	c, err := Fixed(kathmandu).CurrentCoordinates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, kathmandu, c)

	_, err = Fixed{Latitude: 91}.CurrentCoordinates(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.ErrorIs(t, err, model.ErrInvalidCoordinates)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{Reason: "permission denied"}.CurrentCoordinates(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestWithTimeout(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantErr bool
	}{
		{
			name: "Success",
			src:  Fixed(kathmandu),
		},
		{
			name: "Slow source times out",
			src: sourceFunc(func(ctx context.Context) (model.Coordinates, error) {
				<-ctx.Done()
				time.Sleep(5 * time.Millisecond)
				return kathmandu, nil
			}),
			wantErr: true,
		},
		{
			name: "Foreign error is wrapped",
			src: sourceFunc(func(ctx context.Context) (model.Coordinates, error) {
				return model.Coordinates{}, errors.New("gps off")
			}),
			wantErr: true,
		},
		{
			name: "Invalid fix rejected",
			src: sourceFunc(func(ctx context.Context) (model.Coordinates, error) {
				return model.Coordinates{Latitude: 0, Longitude: 200}, nil
			}),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := WithTimeout(tt.src, 20*time.Millisecond).CurrentCoordinates(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLocationUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, kathmandu, c)
		})
	}
}

func TestIPLocator(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"Success", 200, `{"status":"success","lat":27.7172,"lon":85.324,"city":"Kathmandu"}`, false},
		{"Fail status", 200, `{"status":"fail","message":"private range"}`, true},
		{"Missing lon", 200, `{"status":"success","lat":27.7}`, true},
		{"Server error", 502, `bad gateway`, true},
		{"Garbage", 200, `<html>`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			loc := NewIPLocator(request.New(nil, time.Second, ""), srv.URL)
			c, err := loc.CurrentCoordinates(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLocationUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, kathmandu, c)
		})
	}
}
