package subscription

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
)

func rawPairs(t *testing.T, pairs string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(pairs), &out))
	return out
}

func TestDecodeSeriesPairs(t *testing.T) {
	data := map[string][]json.RawMessage{
		"temperature": rawPairs(t, `[[1000, "21.5"], [2000, 22]]`),
	}

	decoded := decodeSeriesPairs(data)
	require.Len(t, decoded["temperature"], 2)
	assert.Equal(t, int64(1000), decoded["temperature"][0].Ts)
	assert.Equal(t, "21.5", decoded["temperature"][0].Value)
	// unquoted numbers are formatted back to strings
	assert.Equal(t, "22", decoded["temperature"][1].Value)
}

func TestDecodeSeriesPairsSkipsMalformed(t *testing.T) {
	data := map[string][]json.RawMessage{
		"good": rawPairs(t, `[[1000, "a"], [2000], "junk", [["ts", "b"]]]`),
		"bad":  rawPairs(t, `[["not-a-ts", "x"]]`),
	}

	decoded := decodeSeriesPairs(data)
	require.Len(t, decoded["good"], 1)
	assert.Equal(t, "a", decoded["good"][0].Value)
	assert.NotContains(t, decoded, "bad")
}

func TestDecodeSeriesPairsEmpty(t *testing.T) {
	assert.Nil(t, decodeSeriesPairs(nil))
	assert.Nil(t, decodeSeriesPairs(map[string][]json.RawMessage{}))
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t, "ws://host/api/ws", TokenURL("ws://host/api/ws", ""))
	assert.Equal(t, "ws://host/api/ws?token=abc", TokenURL("ws://host/api/ws", "abc"))
}

func TestWSClientSubscribeAfterClose(t *testing.T) {
	c := NewWSClient("ws://127.0.0.1:1/api/ws", nil)
	require.NoError(t, c.Close())

	_, err := c.Subscribe(interfaces.StreamSpec{
		EntityType:   "DEVICE",
		EntityID:     "device-1",
		Keys:         "temperature",
		TimeWindowMs: 60000,
	}, func(interfaces.StreamMessage) {})
	assert.Error(t, err)
}
