package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestInitializeWritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	Initialize("debug", &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	l := GetForComponent("ledger")
	l.Info().Str("symbol", "TKA").Msg("hello")

	var record map[string]any
	line := bytes.TrimSpace(buf.Bytes())
	require.NoError(t, json.Unmarshal(line, &record))
	assert.Equal(t, "ledger", record["component"])
	assert.Equal(t, "TKA", record["symbol"])
	assert.Equal(t, "hello", record["message"])
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ammcore.log")
	w, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
}
