package wasmgen

import (
	"bytes"
	"fmt"
)

// WebAssembly binary format constants.
const (
	magic   = uint32(0x6d736100) // "\0asm"
	version = uint32(1)
)

// Section IDs, in required order of appearance.
const (
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionMemory = 5
	sectionGlobal = 6
	sectionExport = 7
	sectionCode   = 10
	sectionData   = 11
)

// ValType is a wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

// Export kinds.
const (
	KindFunc   = 0x00
	KindMemory = 0x02
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function imported from a host module.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Global is a module global, initialized with an i32.const.
type Global struct {
	Type    ValType
	Init    int32
	Mutable bool
}

// Export exposes a function or memory under a name.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// DataSegment places bytes at a fixed offset in the default memory.
type DataSegment struct {
	Bytes  []byte
	Offset uint32
}

// Module accumulates sections and serializes them to the binary format.
// The zero value is an empty module.
type Module struct {
	Types     []FuncType
	Imports   []Import
	funcTypes []uint32
	bodies    [][]byte
	Globals   []Global
	Exports   []Export
	Data      []DataSegment
	MemPages  uint32
	HasMemory bool
}

// AddType registers a function signature and returns its type index.
func (m *Module) AddType(ft FuncType) uint32 {
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// AddImport registers a host function import. Imports occupy the low
// function indices, so all imports must be added before AddFunc.
func (m *Module) AddImport(module, name string, typeIdx uint32) uint32 {
	m.Imports = append(m.Imports, Import{Module: module, Name: name, TypeIdx: typeIdx})
	return uint32(len(m.Imports) - 1)
}

// AddFunc registers a function body and returns its function index
// (offset past the imports).
func (m *Module) AddFunc(typeIdx uint32, body []byte) uint32 {
	m.funcTypes = append(m.funcTypes, typeIdx)
	m.bodies = append(m.bodies, body)
	return uint32(len(m.Imports) + len(m.funcTypes) - 1)
}

// SetMemory declares the default memory with a minimum page count.
func (m *Module) SetMemory(minPages uint32) {
	m.HasMemory = true
	m.MemPages = minPages
}

// AddGlobal registers a global and returns its index.
func (m *Module) AddGlobal(g Global) uint32 {
	m.Globals = append(m.Globals, g)
	return uint32(len(m.Globals) - 1)
}

// ExportFunc exposes a function index under a name.
func (m *Module) ExportFunc(name string, funcIdx uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: KindFunc, Index: funcIdx})
}

// ExportMemory exposes the default memory under a name.
func (m *Module) ExportMemory(name string) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: KindMemory, Index: 0})
}

// AddData places bytes at a fixed offset in the default memory.
func (m *Module) AddData(offset uint32, b []byte) {
	m.Data = append(m.Data, DataSegment{Offset: offset, Bytes: b})
}

// Encode serializes the module to the WebAssembly binary format.
func (m *Module) Encode() []byte {
	var w bytes.Buffer

	writeU32LE(&w, magic)
	writeU32LE(&w, version)

	if len(m.Types) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.Types)))
		for _, ft := range m.Types {
			sec.WriteByte(0x60)
			writeULEB(&sec, uint64(len(ft.Params)))
			for _, p := range ft.Params {
				sec.WriteByte(byte(p))
			}
			writeULEB(&sec, uint64(len(ft.Results)))
			for _, r := range ft.Results {
				sec.WriteByte(byte(r))
			}
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(KindFunc)
			writeULEB(&sec, uint64(imp.TypeIdx))
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.funcTypes) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.funcTypes)))
		for _, ti := range m.funcTypes {
			writeULEB(&sec, uint64(ti))
		}
		writeSection(&w, sectionFunc, sec.Bytes())
	}

	if m.HasMemory {
		var sec bytes.Buffer
		writeULEB(&sec, 1)
		sec.WriteByte(0x00) // limits: min only
		writeULEB(&sec, uint64(m.MemPages))
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(m.Globals) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.Globals)))
		for _, g := range m.Globals {
			sec.WriteByte(byte(g.Type))
			if g.Mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			sec.WriteByte(opI32Const)
			writeSLEB(&sec, int64(g.Init))
			sec.WriteByte(opEnd)
		}
		writeSection(&w, sectionGlobal, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.Exports)))
		for _, e := range m.Exports {
			writeName(&sec, e.Name)
			sec.WriteByte(e.Kind)
			writeULEB(&sec, uint64(e.Index))
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.bodies) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.bodies)))
		for _, body := range m.bodies {
			var entry bytes.Buffer
			writeULEB(&entry, 0) // no local declarations
			entry.Write(body)
			writeULEB(&sec, uint64(entry.Len()))
			sec.Write(entry.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint64(len(m.Data)))
		for _, d := range m.Data {
			sec.WriteByte(0x00) // active segment, memory 0
			sec.WriteByte(opI32Const)
			writeSLEB(&sec, int64(d.Offset))
			sec.WriteByte(opEnd)
			writeULEB(&sec, uint64(len(d.Bytes)))
			sec.Write(d.Bytes)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

// Header validates the wasm magic number and version of b.
func Header(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("wasm binary too short: %d bytes", len(b))
	}
	if readU32LE(b) != magic {
		return fmt.Errorf("bad wasm magic: % x", b[:4])
	}
	if readU32LE(b[4:]) != version {
		return fmt.Errorf("unsupported wasm version: % x", b[4:8])
	}
	return nil
}

func writeSection(w *bytes.Buffer, id byte, contents []byte) {
	w.WriteByte(id)
	writeULEB(w, uint64(len(contents)))
	w.Write(contents)
}

func writeName(w *bytes.Buffer, s string) {
	writeULEB(w, uint64(len(s)))
	w.WriteString(s)
}

func writeU32LE(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}

func readU32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
