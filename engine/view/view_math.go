package view

import "math"

// float32 wrappers over the stdlib math package for the orbit controls.

func sin(x float32) float32 { return float32(math.Sin(float64(x))) }

func cos(x float32) float32 { return float32(math.Cos(float64(x))) }

func asin(x float32) float32 { return float32(math.Asin(float64(x))) }

func atan2(y, x float32) float32 { return float32(math.Atan2(float64(y), float64(x))) }

func abs(x float32) float32 { return float32(math.Abs(float64(x))) }

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
