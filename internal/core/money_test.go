package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"33.3333333", "33.33"},
		{"0.125", "0.12"},
		{"0.135", "0.14"},
		{"300", "300"},
		{"199.999", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundMoney(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.True(t, Percentage(decimal.NewFromInt(250), decimal.NewFromInt(200)).Equal(decimal.NewFromInt(125)))
	assert.True(t, Percentage(decimal.NewFromInt(1), decimal.NewFromInt(3)).Equal(decimal.RequireFromString("33.33")))
	assert.True(t, Percentage(decimal.NewFromInt(50), decimal.Zero).IsZero())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "12.34", want: "12.34"},
		{in: "12,5", want: "12.5"},
		{in: " 7 ", want: "7"},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	nf := EventNotFound(42)
	assert.Equal(t, "Event with ID 42 not found.", nf.Error())
	assert.Equal(t, http.StatusNotFound, nf.StatusCode())
	assert.True(t, IsNotFound(nf))

	wrapped := errors.Join(errors.New("context"), BadRequest("strategy must be %q", "equal"))
	assert.Equal(t, KindBadRequest, KindOf(wrapped))
	assert.True(t, IsBadRequest(wrapped))

	assert.Equal(t, http.StatusBadRequest, Failure(0, "boom").StatusCode())
	assert.Equal(t, http.StatusConflict, Failure(http.StatusConflict, "taken").StatusCode())
	assert.Equal(t, KindFailure, KindOf(errors.New("plain")))

	inv := Invalid(ErrInvalidAmount)
	assert.ErrorIs(t, inv, ErrInvalidAmount)
	assert.Equal(t, ErrInvalidAmount.Error(), inv.Error())
}
