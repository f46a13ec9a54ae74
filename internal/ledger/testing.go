package ledger

import "time"

// SetNow overrides the service clock so tests can control the timestamps
// stamped onto entries.
func SetNow(s *Service, now func() time.Time) {
	s.now = now
}
