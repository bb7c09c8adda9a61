package appscout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppEqual(t *testing.T) {
	a := App{Identifier: "com.example.app", Name: "App"}
	b := App{Identifier: "com.example.app", Name: "Renamed"}
	c := App{Identifier: "com.example.other", Name: "App"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestWatchEventJSON(t *testing.T) {
	data, err := json.Marshal(WatchEvent{
		Kind: Added,
		App:  App{Name: "Zed", Identifier: "zed", Path: "/usr/bin/zed"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"added","app":{"name":"Zed","path":"/usr/bin/zed","identifier":"zed"}}`, string(data))
}

func TestAppJSON_OmitsEmptyOptionalFields(t *testing.T) {
	data, err := json.Marshal(App{Name: "A", Path: "/a", Identifier: "a"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "icon")
	assert.NotContains(t, raw, "localizedNames")
	assert.NotContains(t, raw, "metadata")
}
