// Package application provides application initialization and dependency wiring.
// It encapsulates the creation of run storage, metrics, handlers, routers and
// HTTP server instances, and the batch flow that allocates record files from
// disk, keeping the main packages focused on CLI parsing and orchestration.
package application
