// Package pathtree provides a generic slash-path tree, used to group the
// document store's flat (library, version) rows into the nested
// library→versions shape listLibraries() returns.
package pathtree

import (
	"path/filepath"
	"strings"
)

type Tree[T any] struct {
	Name     string
	Children []*Tree[T]
	Value    T

	FullPath string
}

func New[T any]() *Tree[T] {
	return &Tree[T]{}
}

// AddNode inserts value at the slash-separated path, creating intermediate
// group nodes as needed.
func (p *Tree[T]) AddNode(name string, value T) {
	parts := strings.Split(filepath.Clean(name), string(filepath.Separator))

	current := p

	for index, part := range parts {
		var child *Tree[T]

		for _, existing := range current.Children {
			if existing.Name == part {
				child = existing

				break
			}
		}

		if child == nil {
			child = &Tree[T]{
				Name:     part,
				FullPath: "/" + filepath.Join(parts[:index+1]...),
			}
			current.Children = append(current.Children, child)
		}

		current = child
	}

	current.Value = value
}

// IsLeaf reports whether this node has no children.
func (p *Tree[T]) IsLeaf() bool {
	return len(p.Children) == 0
}

// IsGroup reports whether this node has children.
func (p *Tree[T]) IsGroup() bool {
	return len(p.Children) > 0
}
