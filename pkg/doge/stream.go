package doge

// Stream reads little-endian wire data. Reading past the end marks the
// stream invalid and yields zero values instead of panicking.
type Stream struct {
	b     []byte
	p     uint64
	valid bool
}

func NewStream(b []byte) *Stream {
	return &Stream{b: b, valid: true}
}

func (s *Stream) Valid() bool {
	return s.valid
}

// Complete is true when every byte was consumed without overrun.
func (s *Stream) Complete() bool {
	return s.valid && s.p == uint64(len(s.b))
}

func (s *Stream) take(num uint64) []byte {
	if !s.valid || num > uint64(len(s.b))-s.p {
		s.valid = false
		return nil
	}
	p := s.p
	s.p += num
	return s.b[p : p+num]
}

func (s *Stream) Bytes(num uint64) []byte {
	return s.take(num)
}

func (s *Stream) Uint16le() uint16 {
	b := s.take(2)
	if b == nil {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

func (s *Stream) Uint32le() uint32 {
	b := s.take(4)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (s *Stream) Uint64le() uint64 {
	b := s.take(8)
	if b == nil {
		return 0
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func (s *Stream) VarUint() uint64 {
	b := s.take(1)
	if b == nil {
		return 0
	}
	switch val := b[0]; val {
	case 253:
		return uint64(s.Uint16le())
	case 254:
		return uint64(s.Uint32le())
	case 255:
		return s.Uint64le()
	default:
		return uint64(val)
	}
}
