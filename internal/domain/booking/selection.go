package booking

import "fmt"

// MatchingSlots returns the slots whose display label equals target exactly,
// in the order they appear in slots.
func MatchingSlots(target string, slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.StartAtDisplay == target {
			out = append(out, s)
		}
	}
	return out
}

// ChooseSlot returns the first slot labelled target.
// The error wraps ErrNoMatchingSlot when nothing matches.
func ChooseSlot(target string, slots []Slot) (Slot, error) {
	m := MatchingSlots(target, slots)
	if len(m) == 0 {
		return Slot{}, fmt.Errorf("%w at %s (%d slots listed)", ErrNoMatchingSlot, target, len(slots))
	}
	return m[0], nil
}
