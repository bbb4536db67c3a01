package waproto

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Nested messages deeper than this are rejected rather than recursed into.
const maxDepth = 16

type DecodeError struct {
	msg string
}

func newDecodeError(msg string, vars ...interface{}) *DecodeError {
	return &DecodeError{fmt.Sprintf(msg, vars...)}
}

func (e *DecodeError) Error() string {
	return e.msg
}

type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

// eachField walks the top-level fields of an encoded message. Groups are skipped.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return newDecodeError("invalid tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.varint, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.varint = uint64(v)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return newDecodeError("field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return newDecodeError("field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return newDecodeError("field %d: wire type %d, expected %d", f.num, f.typ, typ)
	}
	return nil
}

func (f field) string(dst *string) error {
	if err := f.want(protowire.BytesType); err != nil {
		return err
	}
	*dst = string(f.bytes)
	return nil
}

func (f field) bytesTo(dst *[]byte) error {
	if err := f.want(protowire.BytesType); err != nil {
		return err
	}
	*dst = append([]byte(nil), f.bytes...)
	return nil
}

func (f field) uint64(dst *uint64) error {
	if err := f.want(protowire.VarintType); err != nil {
		return err
	}
	*dst = f.varint
	return nil
}

func (f field) uint32(dst *uint32) error {
	if err := f.want(protowire.VarintType); err != nil {
		return err
	}
	*dst = uint32(f.varint)
	return nil
}

func (f field) int64(dst *int64) error {
	if err := f.want(protowire.VarintType); err != nil {
		return err
	}
	*dst = int64(f.varint)
	return nil
}

func (f field) bool(dst *bool) error {
	if err := f.want(protowire.VarintType); err != nil {
		return err
	}
	*dst = f.varint != 0
	return nil
}

func (f field) double(dst *float64) error {
	if err := f.want(protowire.Fixed64Type); err != nil {
		return err
	}
	*dst = math.Float64frombits(f.varint)
	return nil
}

// encoder appends fields, leaving zero values out.
type encoder []byte

func (e *encoder) string(num protowire.Number, s string) {
	if s == "" {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendString(*e, s)
}

func (e *encoder) bytes(num protowire.Number, b []byte) {
	if len(b) == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, b)
}

// embedded always writes the field, even for an empty message body.
func (e *encoder) embedded(num protowire.Number, b []byte) {
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, b)
}

func (e *encoder) uint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.VarintType)
	*e = protowire.AppendVarint(*e, v)
}

// enum always writes the field so that a zero enum value survives.
func (e *encoder) enum(num protowire.Number, v uint64) {
	*e = protowire.AppendTag(*e, num, protowire.VarintType)
	*e = protowire.AppendVarint(*e, v)
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	e.uint64(num, 1)
}

func (e *encoder) double(num protowire.Number, v float64) {
	if v == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.Fixed64Type)
	*e = protowire.AppendFixed64(*e, math.Float64bits(v))
}
