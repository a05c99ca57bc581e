package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceIDListAcceptsStringOrArray(t *testing.T) {
	var single CreateShareLinkRequest
	require.NoError(t, json.Unmarshal([]byte(`{"resource_id":"emp_1"}`), &single))
	assert.Equal(t, ResourceIDList{"emp_1"}, single.ResourceID)

	var many CreateShareLinkRequest
	require.NoError(t, json.Unmarshal([]byte(`{"resource_id":["emp_1","emp_2"]}`), &many))
	assert.Equal(t, ResourceIDList{"emp_1", "emp_2"}, many.ResourceID)

	var invalid CreateShareLinkRequest
	require.Error(t, json.Unmarshal([]byte(`{"resource_id":42}`), &invalid))
}
