package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Contract errors (S001-S099)
	"S001": {
		Category:   CategoryContract,
		Message:    "Expecting subscriber function",
		Suggestion: "Pass a non-nil callback to Subscribe",
	},
	"S002": {
		Category:   CategoryContract,
		Message:    "Expecting updater function",
		Suggestion: "Pass a non-nil function to Update",
	},
	"S003": {
		Category: CategoryContract,
		Message:  "Expecting at least one source store",
	},
	"S004": {
		Category:   CategoryContract,
		Message:    "Source is not store-like",
		Suggestion: "Wrap custom readables with store.Erase or store.AsSource",
	},
	"S005": {
		Category:   CategoryContract,
		Message:    "Expecting derive function",
		Suggestion: "Build the deriver with store.Sync or store.Async",
	},
	"S006": {
		Category: CategoryContract,
		Message:  "Value type does not match store type",
	},

	// Persistence errors (P001-P099)
	"P001": {
		Category: CategoryPersistence,
		Message:  "Failed to encode value",
	},
	"P002": {
		Category: CategoryPersistence,
		Message:  "Failed to decode value",
	},
	"P003": {
		Category: CategoryPersistence,
		Message:  "Storage backend failed",
	},
	"P004": {
		Category:   CategoryPersistence,
		Message:    "Invalid storage kind",
		Suggestion: "Use one of: session, local, memory",
	},

	// Config errors (C001-C099)
	"C001": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"C002": {
		Category:   CategoryConfig,
		Message:    "Unknown backend driver",
		Suggestion: "Use one of: memory, redis, sqlite, s3, etcd",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid derive expression",
	},

	// Inspector errors (I001-I099)
	"I001": {
		Category: CategoryInspect,
		Message:  "Store not found",
	},
	"I002": {
		Category: CategoryInspect,
		Message:  "Store is read-only",
	},
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
