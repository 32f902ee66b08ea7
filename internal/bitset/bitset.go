// Package bitset packs small flag structs into machine words and
// implements a fixed-capacity bit-indexed word array. The struct packer
// is adapted from the teacher kernel's bitfield package (itself a
// simplified take on golang.org/x/text/internal/gen/bitfield), used
// there for PageFlags, and keeps the same "bitfield" struct tag
// convention. The Words array backs the process signal masks and the
// physical frame bitmap.
package bitset

import (
	"fmt"
	"reflect"
)

// Config mirrors the teacher's bitfield.Config: NumBits caps the
// packed width, Package/TypeName are unused here (no code generation,
// only runtime pack/unpack).
type Config struct {
	NumBits uint
}

// field describes one packed struct field, recorded during Pack so
// Unpack can walk the same layout without re-parsing tags twice.
type field struct {
	name   string
	offset uint
	bits   uint
	kind   reflect.Kind
}

// Pack compacts the tagged fields of x (a struct or pointer to one)
// into a uint64, most-significant field last, in declaration order.
// Only fields tagged `bitfield:",N"` participate.
func Pack(x interface{}, c *Config) (uint64, error) {
	if c == nil {
		c = &Config{NumBits: 64}
	}

	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("bitset: Pack expected struct, got %v", v.Kind())
	}

	var packed uint64
	var offset uint
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		bits, ok, err := fieldBits(t.Field(i))
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}

		fv := v.Field(i)
		var bits64 uint64
		switch fv.Kind() {
		case reflect.Bool:
			if fv.Bool() {
				bits64 = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			bits64 = fv.Uint()
		default:
			return 0, fmt.Errorf("bitset: Pack unsupported field type %v for %s", fv.Kind(), t.Field(i).Name)
		}

		max := uint64(1)<<bits - 1
		if bits64 > max {
			return 0, fmt.Errorf("bitset: Pack value %d exceeds %d bits for %s", bits64, bits, t.Field(i).Name)
		}

		packed |= bits64 << offset
		offset += bits
	}

	if c.NumBits > 0 && offset > c.NumBits {
		return 0, fmt.Errorf("bitset: Pack total bits %d exceeds NumBits %d", offset, c.NumBits)
	}
	return packed, nil
}

// Unpack reverses Pack, writing the tagged fields of dst (a pointer
// to a struct) from packed. Field types, order, and widths must match
// whatever produced packed.
func Unpack(packed uint64, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bitset: Unpack expected pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	var offset uint
	for i := 0; i < v.NumField(); i++ {
		bits, ok, err := fieldBits(t.Field(i))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		mask := uint64(1)<<bits - 1
		raw := (packed >> offset) & mask
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(raw != 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(raw)
		default:
			return fmt.Errorf("bitset: Unpack unsupported field type %v for %s", fv.Kind(), t.Field(i).Name)
		}
		offset += bits
	}
	return nil
}

func fieldBits(f reflect.StructField) (bits uint, ok bool, err error) {
	tag := f.Tag.Get("bitfield")
	if tag == "" {
		return 0, false, nil
	}
	var n uint
	if _, err := fmt.Sscanf(tag, ",%d", &n); err != nil {
		return 0, false, fmt.Errorf("bitset: invalid bitfield tag %q on field %s", tag, f.Name)
	}
	if n == 0 {
		return 0, false, nil
	}
	return n, true, nil
}

// Words is a fixed-capacity bit-indexed array backed by 32-bit words,
// the representation spec.md's frame bitmap and signal masks both
// call for ("array of 32-bit words", "pending/blocked bit-sets").
type Words struct {
	bits  []uint32
	count uint
}

// NewWords allocates a Words with room for at least n bits.
func NewWords(n uint) *Words {
	return &Words{bits: make([]uint32, (n+31)/32), count: n}
}

// Len reports the number of addressable bits.
func (w *Words) Len() uint { return w.count }

// Test reports whether bit i is set.
func (w *Words) Test(i uint) bool {
	if i >= w.count {
		return false
	}
	return w.bits[i/32]&(1<<(i%32)) != 0
}

// Set sets bit i.
func (w *Words) Set(i uint) {
	if i >= w.count {
		return
	}
	w.bits[i/32] |= 1 << (i % 32)
}

// Clear clears bit i.
func (w *Words) Clear(i uint) {
	if i >= w.count {
		return
	}
	w.bits[i/32] &^= 1 << (i % 32)
}

// PopCount returns the number of set bits.
func (w *Words) PopCount() uint {
	var n uint
	for _, word := range w.bits {
		n += uint(popcount32(word))
	}
	return n
}

func popcount32(v uint32) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}
