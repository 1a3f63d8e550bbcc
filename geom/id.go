package geom

// IDItemSize is the number of bytes used to store a dbId in an id
// attribute entry: three consecutive bytes, little-endian, sampled by
// the shader as a normalized vec3<u8>.
const IDItemSize = 3

// EncodeID writes dbId's low 24 bits as a little-endian byte triple.
func EncodeID(dbID uint32) [IDItemSize]byte {
	return [IDItemSize]byte{
		byte(dbID),
		byte(dbID >> 8),
		byte(dbID >> 16),
	}
}

// DecodeID reverses EncodeID.
func DecodeID(b [IDItemSize]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// WriteID writes dbId into ids at vertex index v (i.e. bytes
// [3v, 3v+3)). ids must have length a multiple of IDItemSize.
func WriteID(ids []byte, v int, dbID uint32) {
	e := EncodeID(dbID)
	copy(ids[v*IDItemSize:v*IDItemSize+IDItemSize], e[:])
}

// ReadID reads back the dbId written by WriteID at vertex index v.
func ReadID(ids []byte, v int) uint32 {
	var e [IDItemSize]byte
	copy(e[:], ids[v*IDItemSize:v*IDItemSize+IDItemSize])
	return DecodeID(e)
}
