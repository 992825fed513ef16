// Package render turns action results into writes against an HTTP response.
//
// The pipeline is a loop over a closed set of result shapes. Each step either
// writes to the response and yields Unit, or yields another value that is fed
// back into the loop:
//
//	404                        → not-found handler, its result is rendered instead
//	Result{Status, Body: int}  → status, headers, decimal body
//	int                        → status only
//	[]byte                     → charset detection for text/*, then the bytes
//	File, *os.File             → charset detection for text/*, then the file contents
//	io.Reader                  → copied, then closed if it is an io.Closer
//	Unit, nil                  → done
//	Result{Status: 404, Unit}  → not-found handler
//	Result                     → status, headers, then the body is rendered
//	string, anything else      → string form written as the body
//
// Renderers registered on a Pipeline are consulted before the built-in rules,
// which lets extensions (WebSocket upgrades, object storage) add result types.
//
// # Content Type
//
// InferContentType chooses a Content-Type for a result when the action did not
// set one. Streams are wrapped so that sniffing their first bytes does not
// consume them.
package render
