package wasmgen

import "bytes"

// Instruction opcodes used by the stubs.
const (
	opEnd       = 0x0b
	opCall      = 0x10
	opDrop      = 0x1a
	opLocalGet  = 0x20
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Const  = 0x41
	opI64Const  = 0x42
	opI32Add    = 0x6a
)

// Code builds one function body. Methods append instructions; Bytes
// returns the encoded expression, which must end with End.
type Code struct {
	buf bytes.Buffer
}

func (c *Code) LocalGet(idx uint32) *Code {
	c.buf.WriteByte(opLocalGet)
	writeULEB(&c.buf, uint64(idx))
	return c
}

func (c *Code) GlobalGet(idx uint32) *Code {
	c.buf.WriteByte(opGlobalGet)
	writeULEB(&c.buf, uint64(idx))
	return c
}

func (c *Code) GlobalSet(idx uint32) *Code {
	c.buf.WriteByte(opGlobalSet)
	writeULEB(&c.buf, uint64(idx))
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	writeSLEB(&c.buf, int64(v))
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf.WriteByte(opI64Const)
	writeSLEB(&c.buf, v)
	return c
}

func (c *Code) I32Add() *Code {
	c.buf.WriteByte(opI32Add)
	return c
}

func (c *Code) Call(funcIdx uint32) *Code {
	c.buf.WriteByte(opCall)
	writeULEB(&c.buf, uint64(funcIdx))
	return c
}

func (c *Code) Drop() *Code {
	c.buf.WriteByte(opDrop)
	return c
}

func (c *Code) End() *Code {
	c.buf.WriteByte(opEnd)
	return c
}

func (c *Code) Bytes() []byte {
	return c.buf.Bytes()
}
