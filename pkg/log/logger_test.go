package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsJSON(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(uint32(logrus.DebugLevel), true, false)
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Debug("insecure bundle hash", "attempt", 3, 42, "dropped", "hash", "ABC")

	var entries []map[string]interface{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]interface{}
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "log field key '42' is not string", entries[0]["msg"])

	entry := entries[1]
	assert.Equal(t, "insecure bundle hash", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 3, entry["attempt"])
	assert.Equal(t, "ABC", entry["hash"])
	assert.NotContains(t, entry, "dropped")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(uint32(logrus.WarnLevel), false, false)
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("hidden")
	assert.Empty(t, buf.String())

	Warn("shown", "seed_length", 90)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `seed_length="90"`)

	SetLevel(uint32(logrus.InfoLevel))
	buf.Reset()
	Infof("now %s", "visible")
	assert.Contains(t, buf.String(), "now visible")
}
