package fsm

// Factory creates state engines.
type Factory[C any] interface {
	Create() *StateEngine[C]
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc[C any] func() *StateEngine[C]

// Create calls f.
func (f FactoryFunc[C]) Create() *StateEngine[C] {
	return f()
}

type defaultFactory[C any] struct {
	opts []Option
}

// NewFactory returns the default factory. Every engine it creates is
// configured with opts.
func NewFactory[C any](opts ...Option) Factory[C] {
	return &defaultFactory[C]{opts: opts}
}

func (f *defaultFactory[C]) Create() *StateEngine[C] {
	return NewStateEngine[C](f.opts...)
}
