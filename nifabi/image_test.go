package nifabi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() Entry {
	return Entry{
		Major:     MajorVersion,
		Minor:     MinorVersion,
		Name:      "mymod",
		VMVariant: VMVariant,
		Funcs: []Func{
			{Name: "add", Arity: 2, Ref: 1},
			{Name: "id", Arity: 1, Ref: 2, Flags: FlagDirtyCPU},
		},
		Load:   LoadHookRef,
		Unload: UnloadHookRef,
	}
}

func writeImage(t *testing.T, e Entry, base uint32) (*Image, uint32) {
	t.Helper()
	buf := make([]byte, Size(e))
	ptr, err := Write(buf, base, e)
	require.NoError(t, err)
	return NewImage(buf, base), ptr
}

func TestWriteRead_RoundTrip(t *testing.T) {
	want := sampleEntry()
	img, ptr := writeImage(t, want, 0x10000)
	assert.Equal(t, uint32(0x10000), ptr)

	got, err := Read(img, ptr)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestWrite_Layout(t *testing.T) {
	e := sampleEntry()
	img, ptr := writeImage(t, e, 0x2000)

	raw, ok := img.Read(ptr, EntrySize)
	require.True(t, ok)
	le := binary.LittleEndian

	assert.Equal(t, MajorVersion, le.Uint32(raw[0:]))
	assert.Equal(t, MinorVersion, le.Uint32(raw[4:]))
	assert.Equal(t, uint32(2), le.Uint32(raw[12:]), "num_of_funcs")
	assert.Equal(t, uint32(0x2000+EntrySize), le.Uint32(raw[16:]), "funcs follow the entry")
	assert.Equal(t, LoadHookRef, le.Uint32(raw[20:]))
	assert.Zero(t, le.Uint32(raw[24:]), "reload")
	assert.Zero(t, le.Uint32(raw[28:]), "upgrade")
	assert.Equal(t, UnloadHookRef, le.Uint32(raw[32:]))
	assert.Zero(t, le.Uint32(raw[40:]), "options")

	name, err := ReadCString(img, le.Uint32(raw[8:]), MaxNameLen)
	require.NoError(t, err)
	assert.Equal(t, "mymod", name)

	second, ok := img.Read(le.Uint32(raw[16:])+FuncSize, FuncSize)
	require.True(t, ok)
	assert.Equal(t, uint32(1), le.Uint32(second[4:]), "arity")
	assert.Equal(t, uint32(2), le.Uint32(second[8:]), "fptr")
	assert.Equal(t, FlagDirtyCPU, le.Uint32(second[12:]), "flags")
}

func TestWrite_NoFunctions(t *testing.T) {
	e := Entry{Major: MajorVersion, Minor: MinorVersion, Name: "empty", VMVariant: VMVariant}
	img, ptr := writeImage(t, e, 64)

	got, err := Read(img, ptr)
	require.NoError(t, err)
	assert.Equal(t, "empty", got.Name)
	assert.Empty(t, got.Funcs)
	assert.Zero(t, got.Load)
}

func TestWrite_Errors(t *testing.T) {
	t.Run("buffer too small", func(t *testing.T) {
		e := sampleEntry()
		_, err := Write(make([]byte, EntrySize), 0x100, e)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "buffer too small")
	})

	t.Run("embedded NUL", func(t *testing.T) {
		e := sampleEntry()
		e.Funcs[0].Name = "a\x00b"
		_, err := Write(make([]byte, Size(e)), 0x100, e)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NUL")
	})

	t.Run("address overflow", func(t *testing.T) {
		e := sampleEntry()
		_, err := Write(make([]byte, Size(e)), 0xFFFFFFF0, e)
		require.Error(t, err)
	})
}

func TestRead_Errors(t *testing.T) {
	img, ptr := writeImage(t, sampleEntry(), 0x1000)

	_, err := Read(img, 0)
	assert.Error(t, err)

	_, err = Read(img, ptr+uint32(img.Len()))
	assert.Error(t, err)

	// Corrupt the function count so the table runs past the image.
	buf := make([]byte, img.Len())
	raw, _ := img.Read(img.Base(), uint32(img.Len()))
	copy(buf, raw)
	binary.LittleEndian.PutUint32(buf[12:], 1000)
	_, err = Read(NewImage(buf, 0x1000), 0x1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of bounds")
}

func TestReadCString(t *testing.T) {
	img := NewImage([]byte("abc\x00defg"), 10)

	s, err := ReadCString(img, 10, 8)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	_, err = ReadCString(img, 14, 8)
	assert.Error(t, err, "unterminated string runs out of bounds")

	_, err = ReadCString(img, 14, 2)
	assert.Error(t, err, "longer than maxLen")

	_, err = ReadCString(img, 0, 8)
	assert.Error(t, err)
}

func TestImage_Read(t *testing.T) {
	img := NewImage([]byte{1, 2, 3, 4}, 100)

	b, ok := img.Read(101, 2)
	require.True(t, ok)
	assert.Equal(t, []byte{2, 3}, b)

	_, ok = img.Read(99, 1)
	assert.False(t, ok)
	_, ok = img.Read(103, 2)
	assert.False(t, ok)
}

func TestCheckVersion(t *testing.T) {
	assert.True(t, CheckVersion(MajorVersion, MinorVersion, MinorVersion))
	assert.True(t, CheckVersion(MajorVersion, 0, MinorVersion))
	assert.False(t, CheckVersion(MajorVersion, MinorVersion+1, MinorVersion))
	assert.False(t, CheckVersion(MajorVersion+1, 0, MinorVersion))
}
