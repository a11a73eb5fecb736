package hosttype

import (
	"errors"
	"math"
	"testing"
)

func TestSmallest(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi int64
		want   string
	}{
		{"zero", 0, 0, "int8"},
		{"small positive", 0, 127, "int8"},
		{"byte", 0, 255, "uint8"},
		{"negative byte", -128, 100, "int8"},
		{"needs int16", -1, 255, "int16"},
		{"uint16", 0, 65535, "uint16"},
		{"int32", 0, 70000, "int32"},
		{"huge", 0, math.MaxInt64, "int64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Go().Smallest(tt.lo, tt.hi)
			if err != nil {
				t.Fatalf("Smallest(%d, %d) error: %v", tt.lo, tt.hi, err)
			}
			if got.Name != tt.want {
				t.Errorf("Smallest(%d, %d) = %s, want %s", tt.lo, tt.hi, got.Name, tt.want)
			}
		})
	}
}

func TestSizeOf(t *testing.T) {
	tests := []struct {
		max  int64
		want int
	}{
		{0, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 4}, {1 << 40, 8},
	}
	for _, tt := range tests {
		got, err := C().SizeOf(tt.max)
		if err != nil {
			t.Fatalf("SizeOf(%d) error: %v", tt.max, err)
		}
		if got != tt.want {
			t.Errorf("SizeOf(%d) = %d, want %d", tt.max, got, tt.want)
		}
	}
}

func TestNoType(t *testing.T) {
	small := Table{{Name: "u8", Min: 0, Max: 255, Size: 1}}
	_, err := small.Smallest(0, 256)
	if !errors.Is(err, ErrNoType) {
		t.Errorf("Smallest error = %v, want ErrNoType", err)
	}
	if err := (Table{}).Validate(); err == nil {
		t.Error("empty table must not validate")
	}
	if _, err := ForLang("cobol"); err == nil {
		t.Error("ForLang(cobol) must fail")
	}
}
