// Package section reads and writes WebAssembly custom sections.
package section

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 8
	customID   = 0x00
)

// ErrOverflow is returned when a LEB128 value exceeds 32 bits.
var ErrOverflow = errors.New("leb128: overflow")

// ErrHeader is returned for input without a WebAssembly module header.
var ErrHeader = errors.New("section: not a wasm module")

// ReadU32 reads an unsigned LEB128 value.
func ReadU32(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

// WriteU32 writes an unsigned LEB128 value.
func WriteU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// AppendCustom returns a copy of bin with a custom section appended.
func AppendCustom(bin []byte, name string, payload []byte) ([]byte, error) {
	if !hasHeader(bin) {
		return nil, ErrHeader
	}

	var content bytes.Buffer
	WriteU32(&content, uint32(len(name)))
	content.WriteString(name)
	content.Write(payload)

	var out bytes.Buffer
	out.Grow(len(bin) + content.Len() + 6)
	out.Write(bin)
	out.WriteByte(customID)
	WriteU32(&out, uint32(content.Len()))
	out.Write(content.Bytes())
	return out.Bytes(), nil
}

// Custom returns the payload of the last custom section called name.
func Custom(bin []byte, name string) ([]byte, bool, error) {
	if !hasHeader(bin) {
		return nil, false, ErrHeader
	}

	r := bytes.NewReader(bin[headerSize:])
	var found []byte
	ok := false
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, false, err
		}
		size, err := ReadU32(r)
		if err != nil {
			return nil, false, fmt.Errorf("section size: %w", err)
		}
		if int(size) > r.Len() {
			return nil, false, fmt.Errorf("section %d: size %d exceeds input", id, size)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, false, err
		}
		if id != customID {
			continue
		}

		br := bytes.NewReader(body)
		n, err := ReadU32(br)
		if err != nil || int(n) > br.Len() {
			return nil, false, fmt.Errorf("custom section name: malformed")
		}
		nameBytes := make([]byte, n)
		_, _ = io.ReadFull(br, nameBytes)
		if string(nameBytes) == name {
			found = body[len(body)-br.Len():]
			ok = true
		}
	}
	return found, ok, nil
}

func hasHeader(bin []byte) bool {
	return len(bin) >= headerSize && bytes.Equal(bin[:4], []byte{0x00, 0x61, 0x73, 0x6d})
}
