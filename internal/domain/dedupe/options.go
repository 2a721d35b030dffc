package dedupe

type options struct {
	capacity int
}

// Option applies a configuration option to a seen-set.
type Option func(*options)

// WithCapacity pre-sizes the set for roughly n games.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
