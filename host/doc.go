// Package host loads native modules and calls their exported functions.
//
// Two backends share one load sequence. Runtime runs a module compiled for
// wasip1 as a wazero reactor and serves the nif_host imports it needs;
// LoadInProcess runs an *export.Module linked into the current process.
// Both read the module descriptor from the module's own memory, check the
// interface version (and, when configured, a manifest), run the load hook,
// and hand back a Module whose Call converts arguments and results to and
// from terms.
//
// Exceptions raised by a module come back as *errors.CallError; a guest trap
// comes back as *errors.TrapError and leaves the module unloaded.
package host
