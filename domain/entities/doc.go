// Package entities provides the core domain entities shared by the guest export
// core and the host runtime: term and environment handles, structured error
// details, and the declaration manifest.
package entities
