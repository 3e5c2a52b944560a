package mesh

// StorageBuilderOption is a functional option for configuring a storage.
type StorageBuilderOption func(*storage)

// WithExtractionWorkers sets the number of worker goroutines used during the
// parallel extraction phase.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - StorageBuilderOption: option function to apply
func WithExtractionWorkers(n int) StorageBuilderOption {
	return func(s *storage) {
		if n < 1 {
			n = 1
		}
		s.poolWorkers = n
	}
}
