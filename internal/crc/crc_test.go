package crc

import "testing"

// Standard check values for the "123456789" ASCII test vector, per the
// CRC-16/CCITT-FALSE and CRC-32C (Castagnoli) catalog entries.
func TestCRC16CheckValue(t *testing.T) {
	got := Init16.Add([]byte("123456789"))
	if got != 0x29B1 {
		t.Fatalf("CRC-16/CCITT-FALSE(\"123456789\") = %#04x, want 0x29b1", uint16(got))
	}
	b := got.Bytes()
	if b != [2]byte{0x29, 0xB1} {
		t.Fatalf("Bytes() = %v, want [0x29 0xb1]", b)
	}
}

func TestCRC32CCheckValue(t *testing.T) {
	got := Init32.Add([]byte("123456789"))
	if got.Final() != 0xE3069283 {
		t.Fatalf("CRC-32C(\"123456789\") = %#08x, want 0xe3069283", got.Final())
	}
}

func TestCRC16Incremental(t *testing.T) {
	whole := Init16.Add([]byte("hello world"))
	split := Init16.Add([]byte("hello ")).Add([]byte("world"))
	if whole != split {
		t.Fatalf("incremental CRC-16 mismatch: %#04x vs %#04x", uint16(whole), uint16(split))
	}
}

func TestCRC32CIncremental(t *testing.T) {
	whole := Init32.Add([]byte("hello world")).Final()
	split := Init32.Add([]byte("hello ")).Add([]byte("world")).Final()
	if whole != split {
		t.Fatalf("incremental CRC-32C mismatch: %#08x vs %#08x", whole, split)
	}
}
