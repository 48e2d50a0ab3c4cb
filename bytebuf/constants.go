package bytebuf

// Growth and sizing constants; power-of-two rounding applies at Alloc.
const (
	InitialCapacity      = 64
	MaxCapacity          = 1 << 30 // 1 GiB
	ExpansionFactor      = 0.5     // capacity grows by at least capacity*ExpansionFactor
	MinExpansion         = 64
	MaxStringWriteLength = 1 << 24 // 16 MiB
)
