package inputmethod

import "sync"

// SerialTracker hands out commit serials. The compositor compares serials
// modulo 2^32, so the counter wraps instead of saturating.
type SerialTracker struct {
	mu     sync.Mutex
	serial uint32
}

// NewSerialTracker returns a tracker starting at initial.
func NewSerialTracker(initial uint32) *SerialTracker {
	return &SerialTracker{serial: initial}
}

// Next returns the current serial and advances the counter by one.
func (t *SerialTracker) Next() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.serial
	t.serial++
	return s
}

// Current returns the serial the next commit will carry.
func (t *SerialTracker) Current() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.serial
}

// Do calls send with the current serial and advances only if send succeeds.
func (t *SerialTracker) Do(send func(serial uint32) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := send(t.serial); err != nil {
		return err
	}
	t.serial++
	return nil
}
