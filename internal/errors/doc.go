// Package errors provides structured, coded errors for the store library.
//
// Every failure the library reports to a caller carries a code that maps to
// a short message, a longer explanation and a category:
//   - contract: a caller violated the store contract (nil callback, empty
//     source list, missing derive function)
//   - persistence: a backend or codec failed while saving or loading
//   - config: the CLI configuration is invalid
//   - inspect: the HTTP inspector rejected a request
//
// # Usage
//
//	err := errors.New("S004").
//	    WithDetail("source 2 is nil").
//	    WithSuggestion("Pass store.Erase(r) for custom readables")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR S004: Source is not store-like
//	//
//	//   source 2 is nil
//	//
//	//   Hint: Pass store.Erase(r) for custom readables
package errors
