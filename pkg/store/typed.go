package store

// Derive1 derives synchronously from one typed source. It panics if a is
// nil.
func Derive1[A, T any](a Readable[A], fn func(A) T, opts ...Option[T]) *Derived[T] {
	return MustDerived([]Source{erase(a)}, Sync(func(v []any) T {
		return fn(cast[A](v[0]))
	}), opts...)
}

// Derive2 derives synchronously from two typed sources.
func Derive2[A, B, T any](a Readable[A], b Readable[B], fn func(A, B) T, opts ...Option[T]) *Derived[T] {
	return MustDerived([]Source{erase(a), erase(b)}, Sync(func(v []any) T {
		return fn(cast[A](v[0]), cast[B](v[1]))
	}), opts...)
}

// Derive3 derives synchronously from three typed sources.
func Derive3[A, B, C, T any](a Readable[A], b Readable[B], c Readable[C], fn func(A, B, C) T, opts ...Option[T]) *Derived[T] {
	return MustDerived([]Source{erase(a), erase(b), erase(c)}, Sync(func(v []any) T {
		return fn(cast[A](v[0]), cast[B](v[1]), cast[C](v[2]))
	}), opts...)
}

// erase is Erase that keeps nil readables nil so NewDerived reports them.
func erase[T any](r Readable[T]) Source {
	if isNil(r) {
		return nil
	}
	return Erase(r)
}
