package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseEventID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEventID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_SQLite(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	db := filepath.Join(t.TempDir(), "data", "ctl.db")

	out, err := execute(t, "migrate", "up", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Version:  1")

	out, err = execute(t, "seed", "--db", db, "--dir", filepath.Join("..", "..", "seed"))
	require.NoError(t, err)
	assert.Contains(t, out, "Events:    4")

	out, err = execute(t, "seed", "--db", db, "--dir", filepath.Join("..", "..", "seed"))
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to seed")

	out, err = execute(t, "summary", "1", "--db", db)
	require.NoError(t, err)
	var summary struct {
		EventID int64 `json:"eventId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, int64(1), summary.EventID)

	_, err = execute(t, "summary", "999", "--db", db)
	assert.Error(t, err)

	_, err = execute(t, "summary", "nope", "--db", db)
	assert.Error(t, err)
}
