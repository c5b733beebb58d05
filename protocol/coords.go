package protocol

import "drone/world"

// ToVirtual flips y into the shared wire frame for a board of height h.
// The transform is its own inverse.
func ToVirtual(c world.Cell, h int) world.Cell {
	return world.Cell{X: c.X, Y: h - 1 - c.Y}
}

func FromVirtual(c world.Cell, h int) world.Cell {
	return ToVirtual(c, h)
}
