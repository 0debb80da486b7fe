package bgen

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBitReader(t *testing.T) {
	var target uint64 = 3
	data := make([]byte, 8) // Big enough to hold a uint64

	binary.LittleEndian.PutUint64(data, target)

	var val uint64
	br := newBitReader(bytes.NewBuffer(data))
	for i := 0; i < 8*len(data); i++ {
		truth, err := br.ReadBit()
		if err != nil {
			t.Fatal(err)
		}
		if truth {
			val |= 1 << uint(i)
		}
	}

	if target != val {
		t.Errorf("Got %d, expected %d", val, target)
	}
}

func TestBitReadUint(t *testing.T) {
	var target uint64 = 0x0102
	data := make([]byte, 8) // Big enough to hold a uint64

	binary.LittleEndian.PutUint64(data, target)

	br := newBitReader(bytes.NewBuffer(data))

	val, err := br.ReadUint(16)
	if err != nil {
		t.Error(err)
	}

	if target != val {
		t.Errorf("Got %d, expected %d", val, target)
	}
}

func TestBitReadUintUnaligned(t *testing.T) {
	// Values 5, 2, 7, 1 packed as four 3-bit integers:
	// 101 | 010 << 3 | 111 << 6 | 001 << 9 = 0b001_111_010_101
	data := []byte{0xd5, 0x03}

	br := newBitReader(bytes.NewBuffer(data))
	for _, want := range []uint64{5, 2, 7, 1} {
		got, err := br.ReadUint(3)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Got %d, expected %d", got, want)
		}
	}
}
