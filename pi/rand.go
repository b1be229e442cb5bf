package pi

const defaultSeed = 0x6400_dead

// xorshift is the generator behind the random window. Each read takes the
// upper half of the next 32-bit state.
type xorshift struct {
	seed  uint32
	state uint32
}

func (x *xorshift) Seed(v uint32) {
	if v == 0 {
		v = defaultSeed
	}
	x.seed = v
	x.state = v
}

func (x *xorshift) Next() uint16 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return uint16(s >> 16)
}
