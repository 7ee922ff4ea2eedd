// Package terrain holds the static diamond-shaped collision cells of a map
// and the spatial hash used to find the cells near a point.
package terrain

import (
	"math"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

// Cell is the center of one diamond obstacle patch. All cells of a map share
// the same Shape.
type Cell struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Center returns the cell center as a vector.
func (c Cell) Center() physics.Vector2D {
	return physics.Vector2D{X: c.X, Y: c.Y}
}

// Shape holds the half extents shared by every cell of a map.
type Shape struct {
	HalfWidth  float64 `json:"halfWidth" yaml:"halfWidth"`
	HalfHeight float64 `json:"halfHeight" yaml:"halfHeight"`
}

// Diamond returns the collision diamond of a cell.
func (s Shape) Diamond(c Cell) physics.Diamond {
	return physics.Diamond{
		Center:     c.Center(),
		HalfWidth:  s.HalfWidth,
		HalfHeight: s.HalfHeight,
	}
}

// Key is an integer bucket coordinate.
type Key struct {
	X int
	Y int
}

// KeyFor quantizes a position with floor(pos / size).
func KeyFor(pos physics.Vector2D, size float64) Key {
	return Key{
		X: int(math.Floor(pos.X / size)),
		Y: int(math.Floor(pos.Y / size)),
	}
}

// Index buckets cells by the grid coordinate of their center. A cell lives in
// exactly one bucket, so lookups scan the 3x3 block around a point.
type Index struct {
	gridSize float64
	shape    Shape
	buckets  map[Key][]Cell
	count    int
}

// Build creates an index over cells. A nil or empty list yields an index
// that never blocks anything.
func Build(cells []Cell, shape Shape, gridSize float64) *Index {
	if gridSize <= 0 {
		gridSize = 1
	}
	idx := &Index{
		gridSize: gridSize,
		shape:    shape,
		buckets:  make(map[Key][]Cell, len(cells)/2+1),
	}
	for _, c := range cells {
		k := KeyFor(c.Center(), gridSize)
		idx.buckets[k] = append(idx.buckets[k], c)
		idx.count++
	}
	return idx
}

// GridSize returns the bucket edge length.
func (idx *Index) GridSize() float64 {
	return idx.gridSize
}

// Shape returns the shared cell shape.
func (idx *Index) Shape() Shape {
	return idx.shape
}

// Len returns the number of indexed cells.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.count
}

// BucketCount returns the number of non-empty buckets.
func (idx *Index) BucketCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.buckets)
}

// ForEachNear calls fn for every cell bucketed in the 3x3 block around pos.
// Iteration stops early when fn returns false.
func (idx *Index) ForEachNear(pos physics.Vector2D, fn func(Cell) bool) {
	if idx == nil || idx.count == 0 {
		return
	}
	center := KeyFor(pos, idx.gridSize)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, c := range idx.buckets[Key{X: center.X + dx, Y: center.Y + dy}] {
				if !fn(c) {
					return
				}
			}
		}
	}
}

// Cells returns a copy of every indexed cell, bucket by bucket.
func (idx *Index) Cells() []Cell {
	if idx == nil {
		return nil
	}
	out := make([]Cell, 0, idx.count)
	for _, bucket := range idx.buckets {
		out = append(out, bucket...)
	}
	return out
}
