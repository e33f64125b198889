package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexUint64(t *testing.T) {
	var body struct {
		Version *FlexUint64 `json:"version"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"version": 12}`), &body))
	assert.Equal(t, uint64(12), body.Version.Uint64())

	require.NoError(t, json.Unmarshal([]byte(`{"version": " 18446744073709551615 "}`), &body))
	assert.Equal(t, uint64(18446744073709551615), body.Version.Uint64())

	body.Version = nil
	require.NoError(t, json.Unmarshal([]byte(`{"version": null}`), &body))
	assert.Nil(t, body.Version)

	for _, bad := range []string{`{"version": -1}`, `{"version": "x"}`, `{"version": 1.5}`, `{"version": true}`} {
		err := json.Unmarshal([]byte(bad), &body)
		assert.Equal(t, KindInvalidInput, KindOf(err), bad)
	}

	out, err := json.Marshal(FlexUint64(7))
	require.NoError(t, err)
	assert.Equal(t, "7", string(out))
}

func TestFlexList(t *testing.T) {
	var list FlexList[string]

	require.NoError(t, json.Unmarshal([]byte(`["a", "b"]`), &list))
	assert.Equal(t, []string{"a", "b"}, list.Slice())

	require.NoError(t, json.Unmarshal([]byte(`"solo"`), &list))
	assert.Equal(t, []string{"solo"}, list.Slice())

	require.NoError(t, json.Unmarshal([]byte(`null`), &list))
	assert.Nil(t, list.Slice())

	err := json.Unmarshal([]byte(`[1]`), &list)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	type option struct {
		ID uint64 `json:"id"`
	}
	var options FlexList[option]
	require.NoError(t, json.Unmarshal([]byte(`{"id": 3}`), &options))
	require.Len(t, options, 1)
	assert.Equal(t, uint64(3), options[0].ID)
}
