package bus

// Base is embedded by devices that own a fixed-size backing array, giving
// them the common "offset..offset+size-1 fits in my range" range check for
// free.
type Base struct {
	size uint32
}

// NewBase creates a Base covering [0, size).
func NewBase(size uint32) Base {
	return Base{size: size}
}

// Size returns the device's mapped size in bytes.
func (b Base) Size() uint32 {
	return b.size
}

// Contains implements the range-check half of PsxDevice.Contains; callers
// still need Aligned() for width-alignment.
func (b Base) Contains(offset uint32, width Width) bool {
	return offset+uint32(width) <= b.size
}
