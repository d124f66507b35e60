// Package hostfuncs provides pure Go implementations of the functions the host
// exposes to a guest module: term decoding and encoding, exception raising and
// log forwarding. These implementations have NO WASM runtime dependencies; the
// infrastructure/wazero adapter binds them to a wazero host module.
package hostfuncs
