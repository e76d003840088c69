package service

import "slices"

// Pure invariant checks used inside the allocation critical section. Normal
// control flow should make violations impossible; these run before every room
// write anyway as a backstop against bugs elsewhere.

// CanAdmit reports whether a room with the given occupancy may admit one more
// occupant without exceeding capacity.
func CanAdmit(occupied, capacity int) bool {
	return occupied < capacity
}

// HasOccupant reports whether userID is already part of the occupant set.
func HasOccupant(occupants []string, userID string) bool {
	return slices.Contains(occupants, userID)
}

// WithinCapacity reports whether an occupant set still satisfies the capacity
// invariant.
func WithinCapacity(occupied, capacity int) bool {
	return occupied <= capacity
}
