package extraction

// Strategy is one named attempt in an ordered cascade.
type Strategy[T any] struct {
	Name string
	Run  func(text string) (T, bool)
}

// Cascade runs strategies in order and returns the result of the first one
// that succeeds together with its name. ok is false when every strategy fails.
func Cascade[T any](text string, strategies []Strategy[T]) (result T, name string, ok bool) {
	for _, s := range strategies {
		if v, found := s.Run(text); found {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}
