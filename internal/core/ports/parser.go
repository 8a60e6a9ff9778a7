package ports

// Parser decodes a payload into T. A parser reports a well-formed
// application-level error payload by returning *domain.RejectionError.
type Parser[T any] interface {
	Parse(data []byte) (T, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc[T any] func(data []byte) (T, error)

// Parse implements Parser.
func (f ParserFunc[T]) Parse(data []byte) (T, error) {
	return f(data)
}
