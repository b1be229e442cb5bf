package cart

// SDRequest is the pending sector read assembled from register writes. Both
// the sector and the count are accumulated big endian: partial write 0 is the
// most significant halfword.
type SDRequest struct {
	Sector uint64
	Count  uint32
}

// SetSectorPart stores halfword i of 4 of the sector number.
func (r *SDRequest) SetSectorPart(i int, v uint16) {
	shift := uint(3-i&3) * 16
	r.Sector = r.Sector&^(0xffff<<shift) | uint64(v)<<shift
}

// SetCountPart stores halfword i of 2 of the sector count.
func (r *SDRequest) SetCountPart(i int, v uint16) {
	shift := uint(1-i&1) * 16
	r.Count = r.Count&^(0xffff<<shift) | uint32(v)<<shift
}

// SectorPart returns halfword i of 4 of the sector number.
func (r *SDRequest) SectorPart(i int) uint16 {
	return uint16(r.Sector >> (uint(3-i&3) * 16))
}

// CountPart returns halfword i of 2 of the sector count.
func (r *SDRequest) CountPart(i int) uint16 {
	return uint16(r.Count >> (uint(1-i&1) * 16))
}
