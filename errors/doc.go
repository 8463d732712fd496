// Package errors provides curated errors for the emulation core: a plain Go
// error type built from a category (Errno) and a set of values to format
// into that category's message. Curated errors are still referenced
// externally as plain errors (they implement the error interface).
//
// Each emulated subsystem wraps the errors it passes up the call stack with
// its own curated message, so the chain often repeats the same leading
// phrase as it is re-wrapped one layer at a time:
//
//	func (b *Bus) Load32(addr uint32) (uint32, error) {
//		v, err := b.route(addr)
//		if err != nil {
//			return 0, errors.Errorf("bus error: %v", err)
//		}
//		return v, nil
//	}
//
// curated's Error() removes an adjacent duplicate of the leading message
// part, so wrapping an already-"bus error: ..." error with another "bus
// error: %v" collapses to one occurrence instead of stuttering.
package errors
