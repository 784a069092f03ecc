package pathtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeGroupsByPrefix(t *testing.T) {
	t.Parallel()

	tree := New[string]()
	tree.AddNode("react/18.2.0", "react-18")
	tree.AddNode("react/17.0.0", "react-17")
	tree.AddNode("vue/3.4.0", "vue-3")

	require.Len(t, tree.Children, 2)
	assert.True(t, tree.IsGroup())

	var react *Tree[string]

	for _, child := range tree.Children {
		if child.Name == "react" {
			react = child
		}
	}

	require.NotNil(t, react)
	assert.True(t, react.IsGroup())
	require.Len(t, react.Children, 2)

	names := map[string]string{}
	for _, version := range react.Children {
		names[version.Name] = version.Value
		assert.True(t, version.IsLeaf())
	}

	assert.Equal(t, "react-18", names["18.2.0"])
	assert.Equal(t, "react-17", names["17.0.0"])
}

func TestAddNodeSinglePath(t *testing.T) {
	t.Parallel()

	tree := New[int]()
	tree.AddNode("lodash/_unversioned_", 42)

	require.Len(t, tree.Children, 1)

	lib := tree.Children[0]
	assert.Equal(t, "lodash", lib.Name)
	require.Len(t, lib.Children, 1)
	assert.Equal(t, "_unversioned_", lib.Children[0].Name)
	assert.Equal(t, 42, lib.Children[0].Value)
}
