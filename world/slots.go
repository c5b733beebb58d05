package world

// Slot is one fixed-capacity entry of the obstacle or target table.
type Slot struct {
	Cell   Cell
	Active bool
}

type Slots [MaxObjects]Slot

// Place activates slot i at c. Out of range indexes are ignored.
func (s *Slots) Place(i int, c Cell) {
	if i < 0 || i >= MaxObjects {
		return
	}
	s[i] = Slot{Cell: c, Active: true}
}

func (s *Slots) Deactivate(i int) {
	if i < 0 || i >= MaxObjects {
		return
	}
	s[i] = Slot{}
}

func (s *Slots) Clear() {
	*s = Slots{}
}

func (s *Slots) ActiveCount() int {
	n := 0
	for _, sl := range s {
		if sl.Active {
			n++
		}
	}
	return n
}

// Find returns the index of the first active slot on c, or -1.
func (s *Slots) Find(c Cell) int {
	for i, sl := range s {
		if sl.Active && sl.Cell == c {
			return i
		}
	}
	return -1
}
