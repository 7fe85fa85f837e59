package mathx

// UnitToU8 maps a [0,1] intensity to 0..255, saturating outside the range.
func UnitToU8(f float32) uint8 {
	return uint8(Clamp(f, 0, 1)*255 + 0.5)
}

// Ratio scales a raw full-range 16-bit reading to [0, full].
func Ratio(raw uint16, full float32) float32 {
	return float32(raw) / 65536 * full
}
