package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneOfEmptyDatasetExportsEmptyArrays(t *testing.T) {
	raw, err := json.Marshal(Dataset{}.Clone())
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, `"reps":[]`)
	assert.Contains(t, body, `"prods":[]`)
	assert.Contains(t, body, `"movs":[]`)
	assert.NotContains(t, body, "null")
}

func TestCloneIsIndependent(t *testing.T) {
	src := Dataset{
		Products: []Product{{ID: "p1", Stock: 3}},
		Cycles:   []ConsignmentCycle{{ID: "c1", MovementIDs: []string{"m1"}}},
	}
	out := src.Clone()
	out.Products[0].Stock = 0
	out.Cycles[0].MovementIDs[0] = "m2"

	assert.Equal(t, 3, src.Products[0].Stock)
	assert.Equal(t, "m1", src.Cycles[0].MovementIDs[0])
}
