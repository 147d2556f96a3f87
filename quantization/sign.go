package quantization

// signCodec packs one bit per component, least significant bit first.
// A set bit means the component was strictly positive. Decoding yields +1/-1.
type signCodec struct{ layout }

func (c signCodec) Encode(dst []byte, src []float32) {
	_ = dst[c.stride-1]
	clear(dst[:c.stride])
	for i, v := range src[:c.dims] {
		if v > 0 {
			dst[i>>3] |= 1 << (i & 7)
		}
	}
}

func (c signCodec) Decode(dst []float32, src []byte) {
	for i := 0; i < c.dims; i++ {
		if src[i>>3]&(1<<(i&7)) != 0 {
			dst[i] = 1
		} else {
			dst[i] = -1
		}
	}
}
