package repository

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of shards. Awards for different users
// hash to independent shards and proceed without contention.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithHistoryLimit bounds the per-user XP event history kept in memory.
func WithHistoryLimit(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}
