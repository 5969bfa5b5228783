package gal

// CachedSequence is a recorded static command list. Recording pre-resolves
// every handle to its backend object so replay skips hashing, sorting, and
// lookup entirely. The sequence never detects staleness on its own: when any
// referenced resource or pipeline is destroyed or replaced, the owner must
// call Executor.InvalidateSequence and re-record.
type CachedSequence struct {
	commands []DrawCommand
	resolved any
	valid    bool
}

// NewCachedSequence copies commands into a valid sequence. Executors are the
// only callers; they attach their resolved payload afterwards.
//
// Parameters:
//   - commands: the commands to record (copied)
//
// Returns:
//   - *CachedSequence: the new sequence
func NewCachedSequence(commands []DrawCommand) *CachedSequence {
	return &CachedSequence{
		commands: append([]DrawCommand(nil), commands...),
		valid:    true,
	}
}

// Commands returns the recorded commands. Callers must not mutate them.
//
// Returns:
//   - []DrawCommand: the recorded commands
func (s *CachedSequence) Commands() []DrawCommand {
	return s.commands
}

// Len returns the number of recorded commands.
//
// Returns:
//   - int: the command count
func (s *CachedSequence) Len() int {
	return len(s.commands)
}

// Valid reports whether the sequence may still be replayed.
//
// Returns:
//   - bool: false once invalidated
func (s *CachedSequence) Valid() bool {
	return s.valid
}

// Resolved returns the backend replay payload attached at record time.
//
// Returns:
//   - any: the backend payload, nil after invalidation
func (s *CachedSequence) Resolved() any {
	return s.resolved
}

// SetResolved attaches the backend replay payload. Called by the recording
// executor.
//
// Parameters:
//   - resolved: the backend payload
func (s *CachedSequence) SetResolved(resolved any) {
	s.resolved = resolved
}

// Invalidate marks the sequence stale and drops its payload. Called through
// Executor.InvalidateSequence.
func (s *CachedSequence) Invalidate() {
	s.valid = false
	s.resolved = nil
	s.commands = nil
}
