// Package ports defines the interfaces (ports) that connect the engine to
// infrastructure adapters.
//
// Ports are the boundaries between the transmission engine and the outside
// world. They define what the engine needs from external systems without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Transport]: Sends one encoded frame on the bus
//   - [Encoder]: Packs physical signal values into a frame payload
//   - [EventHandler]: Receives worker state changes and worker failures
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The engine (internal/app) depends only on these interfaces. Infrastructure
// adapters (internal/adapters) implement them with SocketCAN, an in-memory
// bus, einride bit packing and zerolog.
package ports
