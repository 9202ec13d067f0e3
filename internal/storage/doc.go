// Package storage retains completed allocation runs so they can be fetched
// again through the HTTP API.
package storage
