package errors

import (
	"sort"
	"sync"
)

// Template is the registered description of an error code.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Template{
		// Configuration (SW001-SW099)
		"SW001": {
			Category:   CategoryConfig,
			Message:    "Configuration file not found",
			Detail:     "No switchyard.json was found in the given directory.",
			Suggestion: "Run from the project root or pass --config",
		},
		"SW002": {
			Category: CategoryConfig,
			Message:  "Invalid configuration file",
			Detail:   "switchyard.json could not be parsed as JSON.",
		},
		"SW003": {
			Category: CategoryConfig,
			Message:  "Invalid configuration value",
		},
		"SW004": {
			Category: CategoryConfig,
			Message:  "Configuration could not be written",
		},

		// Dispatch (SW100-SW199)
		"SW101": {
			Category: CategoryDispatch,
			Message:  "Uncaught error while handling the request",
			Detail:   "An action, filter or the error handler returned an error that was not a halt.",
		},
		"SW102": {
			Category: CategoryDispatch,
			Message:  "Panic while handling the request",
		},
		"SW103": {
			Category:   CategoryRender,
			Message:    "Render pipeline did not terminate",
			Detail:     "A result kept producing new results without reaching Unit.",
			Suggestion: "Check renderers and not-found handlers that return 404 or themselves",
		},
		"SW104": {
			Category:   CategoryDispatch,
			Message:    "Pass called from a filter",
			Detail:     "Only route actions may pass to the next route.",
			Suggestion: "Return nil from the filter instead",
		},

		// Storage (SW200-SW299)
		"SW201": {
			Category: CategoryStorage,
			Message:  "Database unavailable",
		},
		"SW202": {
			Category: CategoryStorage,
			Message:  "Object storage unavailable",
		},

		// CLI (SW300-SW399)
		"SW301": {
			Category: CategoryCLI,
			Message:  "Server failed",
		},
	}
)

// GetAllCodes returns every registered code, sorted.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for code.
func GetTemplate(code string) (Template, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces a code.
func Register(code string, t Template) {
	registryMu.Lock()
	registry[code] = t
	registryMu.Unlock()
}
