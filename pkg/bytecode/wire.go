package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/lox/pkg/value"
)

// BytecodeVersion is the current wire format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// wireChunk is the CBOR shape of a Chunk.
type wireChunk struct {
	Version   uint16      `cbor:"1,keyasint"`
	Code      []byte      `cbor:"2,keyasint"`
	Lines     []int       `cbor:"3,keyasint"`
	Constants []wireValue `cbor:"4,keyasint"`
}

type wireValue struct {
	Kind   value.Kind `cbor:"1,keyasint"`
	Number float64    `cbor:"2,keyasint,omitempty"`
	Bool   bool       `cbor:"3,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a Chunk to canonical CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	w := wireChunk{
		Version: BytecodeVersion,
		Code:    c.Code,
		Lines:   c.Lines,
	}
	for i, v := range c.Constants.Values() {
		wv := wireValue{Kind: v.Kind()}
		switch v.Kind() {
		case value.KindNil:
		case value.KindBool:
			wv.Bool = v.AsBool()
		case value.KindNumber:
			wv.Number = v.AsNumber()
		case value.KindObject:
			return nil, fmt.Errorf("bytecode: constant %d: object constants cannot be serialized", i)
		default:
			return nil, fmt.Errorf("bytecode: constant %d: unknown kind %s", i, v.Kind())
		}
		w.Constants = append(w.Constants, wv)
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes and validates it.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if w.Version != BytecodeVersion {
		return nil, fmt.Errorf("bytecode: unsupported version %d (want %d)", w.Version, BytecodeVersion)
	}

	c := NewChunk()
	c.Code = append(c.Code, w.Code...)
	c.Lines = append(c.Lines, w.Lines...)
	for i, wv := range w.Constants {
		switch wv.Kind {
		case value.KindNil:
			c.AddConstant(value.Nil)
		case value.KindBool:
			c.AddConstant(value.Bool(wv.Bool))
		case value.KindNumber:
			c.AddConstant(value.Number(wv.Number))
		case value.KindObject:
			return nil, fmt.Errorf("bytecode: constant %d: object constants cannot be deserialized", i)
		default:
			return nil, fmt.Errorf("bytecode: constant %d: unknown kind %d", i, wv.Kind)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: invalid chunk: %w", err)
	}
	return c, nil
}
