package maskcipher

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		masks Masks
	}{
		{
			name:  "simple text",
			data:  "Hello, GameMaker",
			masks: Masks{Xor: 0x12345678, Add: 0x9ABCDEF0, Sub: 0x11111111},
		},
		{
			name:  "zero masks",
			data:  "Test data!!!",
			masks: Masks{},
		},
		{
			name:  "unaligned length",
			data:  "Another test",
			masks: Masks{Xor: 0xDEADBEEF, Add: 1, Sub: 7},
		},
		{
			name:  "binary data",
			data:  "\x00\x01\x02\x03\x04\x05\x06\x07",
			masks: Masks{Xor: 0xFFFFFFFF, Add: 0xFFFFFFFF, Sub: 0xFFFFFFFF},
		},
		{
			name:  "shorter than a word",
			data:  "abc",
			masks: Masks{Xor: 0x01020304},
		},
		{
			name:  "large data",
			data:  "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
			masks: Masks{Xor: 0x0BADF00D, Add: 0xCAFEBABE, Sub: 0x00010001},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.data)

			Encrypt(data, tt.masks)
			if len(tt.data) >= 4 && tt.masks != (Masks{}) && bytes.Equal(data, []byte(tt.data)) {
				t.Error("Encrypted data is same as original")
			}

			Decrypt(data, tt.masks)
			if !bytes.Equal(data, []byte(tt.data)) {
				t.Errorf("Decrypted data doesn't match original\nOriginal:  %q\nDecrypted: %q", tt.data, data)
			}
		})
	}
}

func TestLeadingBytesUntouched(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0, 0, 0, 0, 0, 0, 0, 0}
	Decrypt(data, Masks{Xor: 0xFFFFFFFF, Add: 0x01010101, Sub: 3})
	if data[0] != 0xAA || data[1] != 0xBB {
		t.Errorf("leading partial word modified: % X", data[:2])
	}
}

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		cipher   string // hex
		masks    Masks
		expected string // hex plaintext
	}{
		{
			name:     "single word",
			cipher:   "00000000",
			masks:    Masks{Xor: 0x12345678, Add: 0x11111111},
			expected: "89674523",
		},
		{
			// The last word uses the initial masks; the first one uses
			// Add = bswap(0x12345678) and Xor = 0x12345678 - 8.
			name:     "two words walk backwards",
			cipher:   "0000000000000000",
			masks:    Masks{Xor: 0x12345678, Add: 0x11111111, Sub: 8},
			expected: "828a8a8a89674523",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := hex.DecodeString(tt.cipher)
			if err != nil {
				t.Fatal(err)
			}
			Decrypt(data, tt.masks)
			if got := hex.EncodeToString(data); got != tt.expected {
				t.Errorf("Decryption mismatch\nExpected: %s\nGot:      %s", tt.expected, got)
			}
		})
	}
}

func BenchmarkDecrypt(b *testing.B) {
	data := make([]byte, 1<<20)
	m := Masks{Xor: 0x12345678, Add: 0x9ABCDEF0, Sub: 0x11111111}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Decrypt(data, m)
	}
}
