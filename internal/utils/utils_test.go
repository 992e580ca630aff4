package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "10", want: 10 * time.Second},
		{in: "10s", want: 10 * time.Second},
		{in: `"5m"`, want: 5 * time.Minute},
		{in: "'250ms'", want: 250 * time.Millisecond},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDurationEnv(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a:3000", "http://b"}, SplitList(" http://a:3000, ,http://b "))
	assert.Nil(t, SplitList(""))
}

func TestIsPGUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsPGUniqueViolation(err))
	assert.False(t, IsPGUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsPGUniqueViolation(errors.New("boom")))
}

func TestIsHTTPStatus(t *testing.T) {
	err := fmt.Errorf("read: %w", &azcore.ResponseError{StatusCode: http.StatusNotFound})
	assert.True(t, IsHTTPStatus(err, http.StatusNotFound))
	assert.False(t, IsHTTPStatus(err, http.StatusConflict))
	assert.False(t, IsHTTPStatus(errors.New("boom"), http.StatusNotFound))
}
