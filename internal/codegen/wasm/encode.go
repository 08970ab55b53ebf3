package wasm

import "bytes"

type valType byte

const (
	valI32 valType = 0x7f
	valI64 valType = 0x7e
	valF64 valType = 0x7c
)

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

const (
	importKindFunc   = 0x00
	exportKindFunc   = 0x00
	exportKindMemory = 0x02
)

type funcType struct {
	params  []valType
	results []valType
}

type importFunc struct {
	module    string
	name      string
	typeIndex uint32
}

type functionDef struct {
	typeIndex uint32
	locals    []valType
	body      []byte
}

type exportDef struct {
	name  string
	kind  byte
	index uint32
}

type globalDef struct {
	typ     valType
	mutable bool
	init    []byte
}

type dataSegment struct {
	offset uint32
	data   []byte
}

// moduleBuilder assembles a binary core module section by section. All
// emission is append-only, so identical call sequences produce identical
// bytes.
type moduleBuilder struct {
	types     []funcType
	imports   []importFunc
	functions []functionDef
	globals   []globalDef
	exports   []exportDef
	data      []dataSegment
	memoryMin uint32
}

// addType interns a function type and returns its index.
func (m *moduleBuilder) addType(params, results []valType) uint32 {
	for i, t := range m.types {
		if typesEqual(t.params, params) && typesEqual(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

func (m *moduleBuilder) addImport(module, name string, typeIndex uint32) uint32 {
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIndex: typeIndex})
	return uint32(len(m.imports) - 1)
}

// addFunction returns the function's index in the combined import+defined
// function index space.
func (m *moduleBuilder) addFunction(typeIndex uint32, locals []valType, body []byte) uint32 {
	m.functions = append(m.functions, functionDef{typeIndex: typeIndex, locals: locals, body: body})
	return uint32(len(m.imports) + len(m.functions) - 1)
}

func (m *moduleBuilder) addGlobal(typ valType, mutable bool, init []byte) uint32 {
	m.globals = append(m.globals, globalDef{typ: typ, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

func (m *moduleBuilder) addExport(name string, kind byte, index uint32) {
	m.exports = append(m.exports, exportDef{name: name, kind: kind, index: index})
}

func (m *moduleBuilder) addData(offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	m.data = append(m.data, dataSegment{offset: offset, data: data})
}

func (m *moduleBuilder) emit() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d}) // magic
	out.Write([]byte{0x01, 0x00, 0x00, 0x00}) // version

	if len(m.types) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.types))))
		for _, t := range m.types {
			sec.WriteByte(0x60)
			sec.Write(uleb(uint32(len(t.params))))
			for _, p := range t.params {
				sec.WriteByte(byte(p))
			}
			sec.Write(uleb(uint32(len(t.results))))
			for _, r := range t.results {
				sec.WriteByte(byte(r))
			}
		}
		writeSection(&out, sectionType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.imports))))
		for _, imp := range m.imports {
			sec.Write(name(imp.module))
			sec.Write(name(imp.name))
			sec.WriteByte(importKindFunc)
			sec.Write(uleb(imp.typeIndex))
		}
		writeSection(&out, sectionImport, sec.Bytes())
	}

	if len(m.functions) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.functions))))
		for _, fn := range m.functions {
			sec.Write(uleb(fn.typeIndex))
		}
		writeSection(&out, sectionFunc, sec.Bytes())
	}

	if m.memoryMin > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(1))
		sec.WriteByte(0x00) // min only
		sec.Write(uleb(m.memoryMin))
		writeSection(&out, sectionMemory, sec.Bytes())
	}

	if len(m.globals) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.globals))))
		for _, g := range m.globals {
			sec.WriteByte(byte(g.typ))
			if g.mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			sec.Write(g.init)
			sec.WriteByte(opEnd)
		}
		writeSection(&out, sectionGlobal, sec.Bytes())
	}

	if len(m.exports) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.exports))))
		for _, exp := range m.exports {
			sec.Write(name(exp.name))
			sec.WriteByte(exp.kind)
			sec.Write(uleb(exp.index))
		}
		writeSection(&out, sectionExport, sec.Bytes())
	}

	if len(m.functions) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.functions))))
		for _, fn := range m.functions {
			var body bytes.Buffer
			body.Write(localGroups(fn.locals))
			body.Write(fn.body)
			body.WriteByte(opEnd)
			sec.Write(uleb(uint32(body.Len())))
			sec.Write(body.Bytes())
		}
		writeSection(&out, sectionCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec bytes.Buffer
		sec.Write(uleb(uint32(len(m.data))))
		for _, seg := range m.data {
			sec.WriteByte(0x00) // active, memory 0
			sec.WriteByte(opI32Const)
			sec.Write(sleb32(int32(seg.offset)))
			sec.WriteByte(opEnd)
			sec.Write(uleb(uint32(len(seg.data))))
			sec.Write(seg.data)
		}
		writeSection(&out, sectionData, sec.Bytes())
	}

	return out.Bytes()
}

func writeSection(out *bytes.Buffer, id byte, content []byte) {
	out.WriteByte(id)
	out.Write(uleb(uint32(len(content))))
	out.Write(content)
}

func name(s string) []byte {
	out := uleb(uint32(len(s)))
	return append(out, s...)
}

// localGroups encodes the function locals as run-length groups.
func localGroups(locals []valType) []byte {
	type group struct {
		count uint32
		typ   valType
	}
	var groups []group
	for _, typ := range locals {
		if n := len(groups); n > 0 && groups[n-1].typ == typ {
			groups[n-1].count++
			continue
		}
		groups = append(groups, group{count: 1, typ: typ})
	}
	out := uleb(uint32(len(groups)))
	for _, g := range groups {
		out = append(out, uleb(g.count)...)
		out = append(out, byte(g.typ))
	}
	return out
}

func typesEqual(a, b []valType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// uleb is unsigned LEB128.
func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// sleb32 is signed LEB128 for 32-bit values.
func sleb32(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// sleb64 is signed LEB128 for 64-bit values.
func sleb64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
