// Package textutil provides filename sanitization helpers shared by the
// encoder output naming and the download endpoint.
package textutil
