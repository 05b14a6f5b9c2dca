// Package domain contains the core entities and value objects for clusterbus.
//
// This package is the innermost layer of the engine. It has no dependencies on
// infrastructure concerns (bus drivers, file formats, logging) and contains
// only the catalog model and the rules derived from it.
//
// # Entities
//
//   - [Catalog]: the immutable set of frames and signals loaded at startup
//   - [Frame]: one addressable bus message and the signals packed into it
//   - [Signal]: a bit-packed field with its physical limits and neutral value
//   - [SignalState]: activation flag and requested [Mode] for one signal
//
// Catalog entities are immutable after [NewCatalog] returns.
package domain
