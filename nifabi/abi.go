// Package nifabi defines the binary contract between a native module and the host
// runtime that loads it: the interface version, the layout of the module descriptor
// and its function table, and the names and signatures of the guest entry points.
//
// All words are little-endian uint32 (wasm32 pointers). A descriptor image is a
// single contiguous block holding the entry, the function table, and every
// NUL-terminated string the tables point to, so pinning the block pins everything
// the host may dereference.
//
// Entry layout (EntrySize bytes):
//
//	0  major        4  minor        8  name*        12 num_of_funcs
//	16 funcs*       20 load         24 reload       28 upgrade
//	32 unload       36 vm_variant*  40 options
//
// Func layout (FuncSize bytes):
//
//	0  name*        4  arity        8  fptr         12 flags
package nifabi

// Interface version implemented by this package.
const (
	MajorVersion uint32 = 2
	MinorVersion uint32 = 7
)

// VMVariant is written into every descriptor.
const VMVariant = "beam.vanilla"

// MaxArity is the largest arity a function may declare.
const MaxArity = 255

// Function flags.
const (
	FlagDirtyCPU uint32 = 1 << 0
	FlagDirtyIO  uint32 = 1 << 1
)

// Load hook return codes.
const (
	LoadOK     int32 = 0
	LoadFailed int32 = 1
)

// Hook references written into the entry. Any non-zero value means "present";
// the host invokes hooks through the matching Export* entry point.
const (
	LoadHookRef   uint32 = 1
	UnloadHookRef uint32 = 2
)

// Sizes of the fixed records.
const (
	wordSize  = 4
	EntrySize = 11 * wordSize
	FuncSize  = 4 * wordSize
	TermSize  = 8
)

// Entry field offsets.
const (
	offMajor     = 0
	offMinor     = 4
	offName      = 8
	offNumFuncs  = 12
	offFuncs     = 16
	offLoad      = 20
	offReload    = 24
	offUpgrade   = 28
	offUnload    = 32
	offVMVariant = 36
	offOptions   = 40
)

// Func field offsets.
const (
	offFuncName  = 0
	offFuncArity = 4
	offFuncPtr   = 8
	offFuncFlags = 12
)

// Guest exports. Signatures are given in wasm value types.
const (
	// ExportInit returns the address of the module descriptor.
	// Signature: nif_init() -> i32
	ExportInit = "nif_init"

	// ExportCall invokes the trampoline referenced by fptr.
	// argv points to argc little-endian i64 terms in guest memory.
	// Signature: nif_call(fptr: i32, env: i64, argc: i32, argv: i32) -> i64
	ExportCall = "nif_call"

	// ExportLoad runs the load hook.
	// Signature: nif_load(env: i64, load_info: i64) -> i32
	ExportLoad = "nif_load"

	// ExportUnload runs the unload hook and releases the descriptor image.
	// Signature: nif_unload(env: i64)
	ExportUnload = "nif_unload"

	// ExportAllocate reserves guest memory the host may write into.
	// Signature: allocate(size: i32) -> i32
	ExportAllocate = "allocate"

	// ExportDeallocate releases memory obtained from allocate.
	// Signature: deallocate(ptr: i32, size: i32)
	ExportDeallocate = "deallocate"

	// ExportInitialize is the WASI reactor initialiser.
	ExportInitialize = "_initialize"
)

// HostModule is the import module name under which the host provides term and
// logging functions to the guest.
const HostModule = "nif_host"

// Host imports. All use the packed i64 (ptr<<32 | len) request/response convention.
const (
	ImportTermDecode     = "term_decode"
	ImportTermEncode     = "term_encode"
	ImportRaiseException = "raise_exception"
	ImportLogMessage     = "log_message"
)
