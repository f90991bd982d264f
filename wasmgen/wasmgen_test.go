package wasmgen

import (
	"bytes"
	"testing"
)

func TestLEB128_RoundTrip(t *testing.T) {
	unsigned := []uint64{0, 1, 127, 128, 300, 624485, 1<<32 - 1, 1 << 40}
	for _, v := range unsigned {
		var buf bytes.Buffer
		writeULEB(&buf, v)
		got, err := readULEB(&buf)
		if err != nil {
			t.Fatalf("readULEB(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("uleb round trip: wrote %d, read %d", v, got)
		}
	}

	signed := []int64{0, 1, -1, 63, 64, -64, -65, 2048, -123456, int64(512)<<32 | 37}
	for _, v := range signed {
		var buf bytes.Buffer
		writeSLEB(&buf, v)
		got, err := readSLEB(&buf)
		if err != nil {
			t.Fatalf("readSLEB(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("sleb round trip: wrote %d, read %d", v, got)
		}
	}
}

func TestLEB128_KnownEncodings(t *testing.T) {
	var buf bytes.Buffer
	writeULEB(&buf, 624485)
	if !bytes.Equal(buf.Bytes(), []byte{0xe5, 0x8e, 0x26}) {
		t.Fatalf("uleb(624485) = % x", buf.Bytes())
	}

	buf.Reset()
	writeSLEB(&buf, -123456)
	if !bytes.Equal(buf.Bytes(), []byte{0xc0, 0xbb, 0x78}) {
		t.Fatalf("sleb(-123456) = % x", buf.Bytes())
	}
}

func TestHeader(t *testing.T) {
	if err := Header(StubArtifact()); err != nil {
		t.Fatalf("stub artifact header: %v", err)
	}
	if err := Header([]byte("not wasm at all")); err == nil {
		t.Fatal("garbage accepted as wasm")
	}
	if err := Header([]byte{0, 'a', 's'}); err == nil {
		t.Fatal("truncated binary accepted")
	}
}

func TestStubCompiler_SectionOrder(t *testing.T) {
	b := StubCompiler(StubConfig{LogMessage: "hi", Dependency: "math"})
	if err := Header(b); err != nil {
		t.Fatalf("header: %v", err)
	}

	// Walk the sections and check IDs are strictly increasing.
	r := bytes.NewReader(b[8:])
	last := -1
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			t.Fatalf("read section id: %v", err)
		}
		size, err := readULEB(r)
		if err != nil {
			t.Fatalf("read section size: %v", err)
		}
		if int(id) <= last {
			t.Fatalf("section %d follows section %d", id, last)
		}
		last = int(id)
		if _, err := r.Seek(int64(size), 1); err != nil {
			t.Fatalf("skip section %d: %v", id, err)
		}
	}

	if last != sectionData {
		t.Fatalf("last section = %d, want data (%d)", last, sectionData)
	}
}

func TestStubCompiler_EmptyArtifactOmitsData(t *testing.T) {
	withArt := StubCompiler(StubConfig{})
	without := StubCompiler(StubConfig{EmptyArtifact: true})

	if len(without) >= len(withArt) {
		t.Fatalf("empty-artifact stub (%d bytes) not smaller than full stub (%d bytes)", len(without), len(withArt))
	}
}

func TestCode_Emission(t *testing.T) {
	var c Code
	c.LocalGet(0).I32Const(16).Call(0).End()

	want := []byte{
		opLocalGet, 0x00,
		opI32Const, 0x10,
		opCall, 0x00,
		opEnd,
	}
	if !bytes.Equal(c.Bytes(), want) {
		t.Fatalf("code bytes = % x, want % x", c.Bytes(), want)
	}
}

func TestModule_FuncIndicesFollowImports(t *testing.T) {
	var m Module
	t0 := m.AddType(FuncType{Params: []ValType{I32}})
	if idx := m.AddImport("env", "log", t0); idx != 0 {
		t.Fatalf("first import index = %d", idx)
	}
	if idx := m.AddImport("env", "fetch-dependency", t0); idx != 1 {
		t.Fatalf("second import index = %d", idx)
	}

	var c Code
	c.End()
	if idx := m.AddFunc(t0, c.Bytes()); idx != 2 {
		t.Fatalf("first local function index = %d, want 2", idx)
	}
}
