package section

import (
	"bytes"
	"testing"
)

var empty = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestLEB128RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 21, 0xffffffff} {
		var buf bytes.Buffer
		WriteU32(&buf, v)
		got, err := ReadU32(&buf)
		if err != nil {
			t.Fatalf("ReadU32(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}

func TestReadU32_Overflow(t *testing.T) {
	_, err := ReadU32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}))
	if err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestAppendCustom(t *testing.T) {
	bin, err := AppendCustom(empty, "first", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	bin, err = AppendCustom(bin, "second", []byte("two"))
	if err != nil {
		t.Fatal(err)
	}

	want := append([]byte(nil), empty...)
	want = append(want, 0x00, 0x09, 0x05, 'f', 'i', 'r', 's', 't', 'o', 'n', 'e')
	if !bytes.Equal(bin[:len(want)], want) {
		t.Fatalf("unexpected encoding: % x", bin)
	}

	got, ok, err := Custom(bin, "second")
	if err != nil || !ok {
		t.Fatalf("Custom: ok=%v err=%v", ok, err)
	}
	if string(got) != "two" {
		t.Fatalf("payload = %q", got)
	}

	if _, ok, _ := Custom(bin, "third"); ok {
		t.Fatal("unexpected section")
	}
	if len(empty) != headerSize {
		t.Fatal("input was modified")
	}
}

func TestAppendCustom_RejectsNonWasm(t *testing.T) {
	if _, err := AppendCustom([]byte("nope"), "x", nil); err != ErrHeader {
		t.Fatalf("expected ErrHeader, got %v", err)
	}
	if _, _, err := Custom([]byte("nope"), "x"); err != ErrHeader {
		t.Fatalf("expected ErrHeader, got %v", err)
	}
}
