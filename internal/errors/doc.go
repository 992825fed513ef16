// Package errors provides coded, structured errors for switchyard.
//
// Every error has a code (e.g. "SW001") registered with a category, a short
// message and a longer detail. Errors print either colored for terminals
// (Format) or as plain text for HTTP bodies in development mode (Plain).
//
//	err := errors.New("SW002").
//	    WithDetail("unexpected end of JSON input").
//	    WithSuggestion("Check switchyard.json for a missing brace")
//
//	errors.PrintError(err)
//	// ERROR SW002: Invalid configuration file
//	//
//	//   unexpected end of JSON input
//	//
//	//   Hint: Check switchyard.json for a missing brace
package errors
