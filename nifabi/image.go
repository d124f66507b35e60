package nifabi

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// MaxNameLen bounds every string the host reads out of a descriptor.
const MaxNameLen = 255

// maxFuncs bounds the function table the host is willing to read.
const maxFuncs = 1 << 16

// Entry is the decoded form of a module descriptor.
type Entry struct {
	Name      string
	VMVariant string
	Funcs     []Func
	Major     uint32
	Minor     uint32
	Load      uint32
	Reload    uint32
	Upgrade   uint32
	Unload    uint32
	Options   uint32
}

// Func is the decoded form of one function table record.
type Func struct {
	Name  string
	Arity uint32
	// Ref is the entry point reference passed back to ExportCall.
	Ref   uint32
	Flags uint32
}

// Memory is read access to the address space the descriptor lives in.
// wazero's api.Memory satisfies it.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
}

// Size returns the number of bytes Write needs to lay out e.
func Size(e Entry) int {
	n := EntrySize + len(e.Funcs)*FuncSize
	n += len(e.Name) + 1 + len(e.VMVariant) + 1
	for _, f := range e.Funcs {
		n += len(f.Name) + 1
	}
	return n
}

// Write lays out e into buf, whose first byte lives at guest address base,
// and returns the address of the entry record. buf must be at least Size(e) bytes.
// Strings must not contain NUL bytes.
func Write(buf []byte, base uint32, e Entry) (uint32, error) {
	need := Size(e)
	if len(buf) < need {
		return 0, fmt.Errorf("nifabi: buffer too small: have %d bytes, need %d", len(buf), need)
	}
	if uint64(base)+uint64(need) > 1<<32 {
		return 0, fmt.Errorf("nifabi: image at 0x%x does not fit a 32-bit address space", base)
	}

	le := binary.LittleEndian
	funcsOff := EntrySize
	strOff := funcsOff + len(e.Funcs)*FuncSize

	putString := func(s string) (uint32, error) {
		if strings.IndexByte(s, 0) >= 0 {
			return 0, fmt.Errorf("nifabi: string %q contains a NUL byte", s)
		}
		addr := base + uint32(strOff) //nolint:gosec // G115: bounded by the 32-bit check above
		copy(buf[strOff:], s)
		buf[strOff+len(s)] = 0
		strOff += len(s) + 1
		return addr, nil
	}

	namePtr, err := putString(e.Name)
	if err != nil {
		return 0, err
	}
	variantPtr, err := putString(e.VMVariant)
	if err != nil {
		return 0, err
	}

	for i, f := range e.Funcs {
		fnName, err := putString(f.Name)
		if err != nil {
			return 0, err
		}
		rec := buf[funcsOff+i*FuncSize:]
		le.PutUint32(rec[offFuncName:], fnName)
		le.PutUint32(rec[offFuncArity:], f.Arity)
		le.PutUint32(rec[offFuncPtr:], f.Ref)
		le.PutUint32(rec[offFuncFlags:], f.Flags)
	}

	var funcsPtr uint32
	if len(e.Funcs) > 0 {
		funcsPtr = base + uint32(funcsOff)
	}

	le.PutUint32(buf[offMajor:], e.Major)
	le.PutUint32(buf[offMinor:], e.Minor)
	le.PutUint32(buf[offName:], namePtr)
	le.PutUint32(buf[offNumFuncs:], uint32(len(e.Funcs))) //nolint:gosec // G115: table length fits in the image
	le.PutUint32(buf[offFuncs:], funcsPtr)
	le.PutUint32(buf[offLoad:], e.Load)
	le.PutUint32(buf[offReload:], e.Reload)
	le.PutUint32(buf[offUpgrade:], e.Upgrade)
	le.PutUint32(buf[offUnload:], e.Unload)
	le.PutUint32(buf[offVMVariant:], variantPtr)
	le.PutUint32(buf[offOptions:], e.Options)

	return base, nil
}

// Read decodes the descriptor at ptr.
func Read(mem Memory, ptr uint32) (*Entry, error) {
	if ptr == 0 {
		return nil, fmt.Errorf("nifabi: null descriptor pointer")
	}
	raw, ok := mem.Read(ptr, EntrySize)
	if !ok {
		return nil, fmt.Errorf("nifabi: descriptor at 0x%x is out of bounds", ptr)
	}

	le := binary.LittleEndian
	e := &Entry{
		Major:   le.Uint32(raw[offMajor:]),
		Minor:   le.Uint32(raw[offMinor:]),
		Load:    le.Uint32(raw[offLoad:]),
		Reload:  le.Uint32(raw[offReload:]),
		Upgrade: le.Uint32(raw[offUpgrade:]),
		Unload:  le.Uint32(raw[offUnload:]),
		Options: le.Uint32(raw[offOptions:]),
	}
	namePtr := le.Uint32(raw[offName:])
	numFuncs := le.Uint32(raw[offNumFuncs:])
	funcsPtr := le.Uint32(raw[offFuncs:])
	variantPtr := le.Uint32(raw[offVMVariant:])

	var err error
	if e.Name, err = ReadCString(mem, namePtr, MaxNameLen); err != nil {
		return nil, fmt.Errorf("nifabi: module name: %w", err)
	}
	if e.VMVariant, err = ReadCString(mem, variantPtr, MaxNameLen); err != nil {
		return nil, fmt.Errorf("nifabi: vm variant: %w", err)
	}

	if numFuncs > maxFuncs {
		return nil, fmt.Errorf("nifabi: function table too large (%d entries)", numFuncs)
	}
	if numFuncs == 0 {
		return e, nil
	}
	table, ok := mem.Read(funcsPtr, numFuncs*FuncSize)
	if !ok {
		return nil, fmt.Errorf("nifabi: function table at 0x%x is out of bounds", funcsPtr)
	}
	e.Funcs = make([]Func, numFuncs)
	for i := range e.Funcs {
		rec := table[i*FuncSize:]
		f := Func{
			Arity: le.Uint32(rec[offFuncArity:]),
			Ref:   le.Uint32(rec[offFuncPtr:]),
			Flags: le.Uint32(rec[offFuncFlags:]),
		}
		if f.Name, err = ReadCString(mem, le.Uint32(rec[offFuncName:]), MaxNameLen); err != nil {
			return nil, fmt.Errorf("nifabi: function %d name: %w", i, err)
		}
		e.Funcs[i] = f
	}
	return e, nil
}

// ReadCString reads a NUL-terminated string of at most maxLen bytes at ptr.
func ReadCString(mem Memory, ptr uint32, maxLen int) (string, error) {
	if ptr == 0 {
		return "", fmt.Errorf("null string pointer")
	}
	var sb strings.Builder
	for i := 0; i <= maxLen; i++ {
		b, ok := mem.Read(ptr+uint32(i), 1) //nolint:gosec // G115: i is bounded by maxLen
		if !ok {
			return "", fmt.Errorf("string at 0x%x runs out of bounds", ptr)
		}
		if b[0] == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(b[0])
	}
	return "", fmt.Errorf("string at 0x%x is not terminated within %d bytes", ptr, maxLen)
}

// Image is a descriptor block addressed from a fixed base.
// It implements Memory for the range [base, base+len).
type Image struct {
	buf  []byte
	base uint32
}

// NewImage wraps buf as the memory range starting at base.
func NewImage(buf []byte, base uint32) *Image {
	return &Image{buf: buf, base: base}
}

// Base returns the address of the first byte.
func (m *Image) Base() uint32 {
	return m.base
}

// Len returns the size of the image in bytes.
func (m *Image) Len() int {
	return len(m.buf)
}

// Read implements Memory.
func (m *Image) Read(offset, byteCount uint32) ([]byte, bool) {
	if offset < m.base {
		return nil, false
	}
	start := uint64(offset - m.base)
	end := start + uint64(byteCount)
	if end > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[start:end], true
}

// CheckVersion reports whether a descriptor version is loadable by a host
// implementing MajorVersion.maxMinor.
func CheckVersion(major, minor, maxMinor uint32) bool {
	return major == MajorVersion && minor <= maxMinor
}
