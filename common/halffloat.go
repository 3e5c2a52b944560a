package common

import "math"

// Float16frombits converts an IEEE 754 half precision bit pattern to a
// float32. Handles subnormals, infinities and NaN. Used when reading back
// rgba16float render targets from the GPU.
//
// Parameters:
//   - bits: the 16-bit half precision pattern
//
// Returns:
//   - float32: the widened value
func Float16frombits(bits uint16) float32 {
	sign := uint32(bits>>15) << 31
	exp := uint32(bits>>10) & 0x1f
	mant := uint32(bits) & 0x3ff

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half: renormalize into float32 range.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
	case 0x1f:
		// Inf or NaN.
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	}

	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}

// Float16bits converts a float32 to the nearest IEEE 754 half precision bit
// pattern, rounding to nearest even. Values outside the half range become
// infinities.
//
// Parameters:
//   - f: the value to narrow
//
// Returns:
//   - uint16: the 16-bit half precision pattern
func Float16bits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>31) << 15
	exp := int32(bits>>23)&0xff - 127
	mant := bits & 0x7fffff

	switch {
	case exp == 128:
		// Inf or NaN, keep a mantissa bit set for NaN.
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp > 15:
		return sign | 0x7c00
	case exp < -24:
		return sign
	case exp < -14:
		// Subnormal half.
		mant |= 0x800000
		shift := uint32(-exp - 1)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 == 1 && (mant&(1<<(shift-1)-1) != 0 || half&1 == 1) {
			half++
		}
		return sign | half
	}

	half := sign | uint16(exp+15)<<10 | uint16(mant>>13)
	if mant&0x1000 != 0 && (mant&0xfff != 0 || half&1 == 1) {
		half++
	}
	return half
}
