// Package ports defines the interfaces the host uses to read manifests and to
// move terms across the module boundary. Implementations live in the
// infrastructure and application layers.
package ports
