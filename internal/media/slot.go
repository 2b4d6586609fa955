package media

import "sync"

// Slot holds at most one attachment. Replacing or closing the slot releases
// whatever it held, so a preview is never left dangling.
type Slot struct {
	mu      sync.Mutex
	current *Attachment
}

// Current returns the held attachment, or nil.
func (s *Slot) Current() *Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Select opens path and stores it, releasing the previous attachment.
// On failure the previous attachment is kept.
func (s *Slot) Select(path string) (*Attachment, error) {
	a, err := Open(path)
	if err != nil {
		return nil, err
	}
	return a, s.Replace(a)
}

// Replace stores a, releasing the previous attachment. A nil a empties the slot.
func (s *Slot) Replace(a *Attachment) error {
	s.mu.Lock()
	prev := s.current
	s.current = a
	s.mu.Unlock()

	if prev != nil && prev != a {
		return prev.Release()
	}
	return nil
}

// Close releases the held attachment and empties the slot.
func (s *Slot) Close() error {
	return s.Replace(nil)
}
