package gal

// CommandSorter orders draw commands by SortKey using an LSD radix sort:
// eight passes over one byte each, O(n) per frame with no comparisons. The
// scratch slice persists across frames so steady-state sorting allocates
// nothing.
//
// The sort is stable, so commands with equal keys keep submission order.
type CommandSorter struct {
	scratch []DrawCommand
}

// NewCommandSorter creates a sorter with empty scratch.
//
// Returns:
//   - *CommandSorter: the new sorter
func NewCommandSorter() *CommandSorter {
	return &CommandSorter{}
}

// Sort orders commands ascending by SortKey in place.
//
// Parameters:
//   - commands: the frame's draw commands
func (s *CommandSorter) Sort(commands []DrawCommand) {
	n := len(commands)
	if n < 2 {
		return
	}
	if cap(s.scratch) < n {
		s.scratch = make([]DrawCommand, n)
	}
	scratch := s.scratch[:n]

	src, dst := commands, scratch
	var counts [256]int
	for pass := 0; pass < 8; pass++ {
		shift := uint(pass * 8)

		for i := range counts {
			counts[i] = 0
		}
		for i := range src {
			counts[byte(src[i].SortKey>>shift)]++
		}

		// A pass where every key shares one byte value is already in order.
		if counts[byte(src[0].SortKey>>shift)] == n {
			continue
		}

		total := 0
		for i := range counts {
			c := counts[i]
			counts[i] = total
			total += c
		}
		for i := range src {
			b := byte(src[i].SortKey >> shift)
			dst[counts[b]] = src[i]
			counts[b]++
		}
		src, dst = dst, src
	}

	// An odd number of effective passes leaves the result in scratch.
	if &src[0] != &commands[0] {
		copy(commands, src)
	}
}
