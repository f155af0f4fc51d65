package repository

import "time"

// Option applies a configuration option to the RetentionStore.
type Option func(*RetentionStore)

// WithNormalAge sets the retention window of a killmail whose scaled value is 1.
func WithNormalAge(d time.Duration) Option {
	return func(s *RetentionStore) {
		if d > 0 {
			s.normalAge = d
		}
	}
}
