package vkng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestVertexInput(t *testing.T) {
	input, err := vertexInput(32, []VertexAttribute{
		{Location: 0, Components: 3, Offset: 0},
		{Location: 1, Components: 3, Offset: 12},
		{Location: 2, Components: 2, Offset: 24},
	})
	require.NoError(t, err)

	require.Len(t, input.VertexBindingDescriptions, 1)
	assert.Equal(t, 32, input.VertexBindingDescriptions[0].Stride)
	assert.Equal(t, core1_0.VertexInputRateVertex, input.VertexBindingDescriptions[0].InputRate)

	require.Len(t, input.VertexAttributeDescriptions, 3)
	assert.Equal(t, core1_0.FormatR32G32B32SignedFloat, input.VertexAttributeDescriptions[1].Format)
	assert.Equal(t, 12, input.VertexAttributeDescriptions[1].Offset)
	assert.Equal(t, core1_0.FormatR32G32SignedFloat, input.VertexAttributeDescriptions[2].Format)
	assert.Equal(t, 2, input.VertexAttributeDescriptions[2].Location)
}

func TestVertexInputRejectsWideAttribute(t *testing.T) {
	_, err := vertexInput(20, []VertexAttribute{{Location: 0, Components: 5}})
	assert.Error(t, err)
}

func TestDestroyNilPipeline(t *testing.T) {
	var d Device
	d.DestroyPipeline(nil)
}
