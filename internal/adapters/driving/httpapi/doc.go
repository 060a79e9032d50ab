// Package httpapi exposes the document chat service over HTTP.
//
// The server is a thin translation layer: handlers decode requests,
// call the driving ports and map domain errors to status codes.
// Upstream model failures surface as 502 so clients can tell a broken
// request (4xx) from a broken dependency.
package httpapi
