package cryptoutils

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestRaw2StrAndB2Raw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []byte
		wantStr string
	}{
		{name: "basic hex conversion", input: []byte{0x01, 0xAB, 0x0F}, wantStr: "01AB0F"},
		{name: "empty", input: []byte{}, wantStr: ""},
	}

	for _, tt := range tests {
		tt := tt // capture range variable.
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotStr := Raw2Str(tt.input)
			if gotStr != tt.wantStr {
				t.Errorf("Raw2Str() = %v, want %v.", gotStr, tt.wantStr)
			}

			raw, err := B2Raw([]byte(gotStr))
			if err != nil {
				t.Fatalf("B2Raw() unexpected error: %v.", err)
			}
			if !reflect.DeepEqual(raw, tt.input) {
				t.Errorf("B2Raw() = %v, want %v.", raw, tt.input)
			}
		})
	}

	if _, err := B2Raw([]byte("zz")); err == nil {
		t.Error("B2Raw() expected error for invalid hex.")
	}
}

func TestParityAndKeyParity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		parityInput   int
		wantParity    int
		keyInput      string
		wantKeyParity bool
	}{
		{name: "even parity byte", parityInput: 0x00, wantParity: 0},
		{name: "odd parity byte", parityInput: 0x01, wantParity: -1},
		{
			name:          "odd parity key",
			parityInput:   0x03,
			wantParity:    0,
			keyInput:      "0123456789ABCDEFFEDCBA9876543210",
			wantKeyParity: true,
		},
		{
			name:          "failing key",
			parityInput:   0x07,
			wantParity:    -1,
			keyInput:      "deafbeedeafbeedeafbeedeafbeedeaf",
			wantKeyParity: false,
		},
	}

	for _, tt := range tests {
		tt := tt // capture range variable.
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ParityOf(tt.parityInput); got != tt.wantParity {
				t.Errorf("ParityOf() = %v, want %v.", got, tt.wantParity)
			}
			if tt.keyInput == "" {
				return
			}

			key, err := B2Raw([]byte(tt.keyInput))
			if err != nil {
				t.Fatalf("failed to convert test key: %v.", err)
			}
			if got := CheckKeyParity(key); got != tt.wantKeyParity {
				t.Errorf("CheckKeyParity() = %v, want %v.", got, tt.wantKeyParity)
			}
			if !CheckKeyParity(FixKeyParity(key)) {
				t.Error("FixKeyParity() failed to correct key parity.")
			}
		})
	}
}

func TestGenerateRandomKey(t *testing.T) {
	t.Parallel()

	for _, n := range []int{KEY_LENGTH_SINGLE, KEY_LENGTH_DOUBLE, KEY_LENGTH_TRIPLE} {
		k1, err := GenerateRandomKey(n)
		if err != nil {
			t.Fatalf("GenerateRandomKey(%d) error: %v.", n, err)
		}
		k2, err := GenerateRandomKey(n)
		if err != nil {
			t.Fatalf("GenerateRandomKey(%d) error: %v.", n, err)
		}
		if len(k1) != n || !CheckKeyParity(k1) {
			t.Errorf("GenerateRandomKey(%d) = %X, want %d bytes with odd parity.", n, k1, n)
		}
		if bytes.Equal(k1, k2) {
			t.Errorf("GenerateRandomKey(%d) returned the same key twice.", n)
		}
	}

	if _, err := GenerateRandomKey(12); err == nil {
		t.Error("GenerateRandomKey(12) expected error.")
	}
}

func TestKeyCV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "single length", key: "0123456789ABCDEF", want: "D5D44F"},
		{name: "double length", key: "0123456789ABCDEFFEDCBA9876543210", want: "08D7B4"},
		{name: "triple length", key: "0123456789ABCDEFFEDCBA98765432100123456789ABCDEF", want: "08D7B4"},
		{name: "bad length", key: "0123", wantErr: true},
		{name: "bad hex", key: "XY", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt // capture range variable.
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := KeyCV([]byte(tt.key), 6)
			if tt.wantErr {
				if err == nil {
					t.Errorf("KeyCV() expected error, got %s.", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("KeyCV() unexpected error: %v.", err)
			}
			if string(got) != tt.want {
				t.Errorf("KeyCV() = %s, want %s.", got, tt.want)
			}
		})
	}
}

func TestECBRoundTrip(t *testing.T) {
	t.Parallel()

	key, err := GenerateRandomKey(KEY_LENGTH_TRIPLE)
	if err != nil {
		t.Fatal(err)
	}
	block, err := NewDESCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	plain := []byte("0123456789ABCDEF")
	ct := make([]byte, len(plain))
	NewECBEncrypter(block).CryptBlocks(ct, plain)
	out := make([]byte, len(ct))
	NewECBDecrypter(block).CryptBlocks(out, ct)

	if !bytes.Equal(plain, out) {
		t.Errorf("ECB round trip = %q, want %q.", out, plain)
	}
	if bytes.Equal(ct[:8], ct[8:]) {
		t.Error("distinct plaintext blocks produced equal ciphertext blocks.")
	}
}

func TestUnpad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		want    []byte
		wantErr bool
	}{
		{name: "one byte", data: []byte("1234567\x01"), want: []byte("1234567")},
		{name: "full block", data: bytes.Repeat([]byte{8}, 8), want: []byte{}},
		{name: "zero pad byte", data: []byte("1234567\x00"), wantErr: true},
		{name: "pad byte above block size", data: []byte("1234567\xff"), wantErr: true},
		{name: "pad byte above length", data: []byte("1234567\x09"), wantErr: true},
		{name: "inconsistent pad bytes", data: []byte("12345\x01\x03\x03"), wantErr: true},
		{name: "not a block multiple", data: []byte("123\x01"), wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Unpad(tt.data, 8)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPadding) {
					t.Fatalf("Unpad() error = %v, want %v.", err, ErrInvalidPadding)
				}

				return
			}
			if err != nil {
				t.Fatalf("Unpad() unexpected error: %v.", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Unpad() = %q, want %q.", got, tt.want)
			}
		})
	}
}
