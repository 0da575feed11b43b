package permission

// Mask128 is a 128-bit permission bitmask. Lo holds bits 0-63, Hi bits 64-127;
// the root bit is the highest bit of Hi.
type Mask128 struct {
	Lo uint64
	Hi uint64
}

func (m *Mask128) Has(bit int, rootReserved bool) bool {
	if bit < 0 || bit >= 128 {
		return false
	}

	if rootReserved && (m.Hi&(1<<63)) != 0 {
		return true
	}

	if bit < 64 {
		return (m.Lo & (1 << bit)) != 0
	}

	return (m.Hi & (1 << (bit - 64))) != 0
}

func (m *Mask128) Set(bit int) {
	switch {
	case bit < 0 || bit >= 128:
	case bit < 64:
		m.Lo |= (1 << bit)
	default:
		m.Hi |= (1 << (bit - 64))
	}
}

func (m *Mask128) Clear(bit int) {
	switch {
	case bit < 0 || bit >= 128:
	case bit < 64:
		m.Lo &^= (1 << bit)
	default:
		m.Hi &^= (1 << (bit - 64))
	}
}
