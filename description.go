package itemstore

import "encoding/binary"

// StoreID is a 64-bit identifier for a live item: globally unique for the
// lifetime of the store, allocated monotonically, and never reused even
// after the item that held it is deleted.
type StoreID uint64

// Index names a fixed-size position in the description file. Unlike
// StoreID, an Index is reusable: deleting an item frees its slot index for
// the next allocation.
type Index uint64

// DataRange is a half-open byte range [Offset, Offset+Length) into the
// data file. Length is always positive for a valid range.
type DataRange struct {
	Offset uint64
	Length uint64
}

// End returns the exclusive end offset of r.
func (r DataRange) End() uint64 {
	return r.Offset + r.Length
}

// overlaps reports whether r and other share any byte.
func (r DataRange) overlaps(other DataRange) bool {
	return r.Offset < other.End() && other.Offset < r.End()
}

// adjacent reports whether r immediately precedes other with no gap.
func (r DataRange) adjacent(other DataRange) bool {
	return r.End() == other.Offset
}

// slotSize is the fixed size, in bytes, of one on-disk description slot:
// live(1) + StoreID(8) + offset(8) + length(8).
const slotSize = 1 + 8 + 8 + 8

// Description is the fixed-size on-disk record naming a live (or
// formerly-live) item: its StoreID, the DataRange holding its payload, and
// a live flag. All multi-byte fields are big-endian.
type Description struct {
	Live  bool
	ID    StoreID
	Range DataRange
}

// encode serializes d into the normative 25-byte slot layout:
// [live:u8 | storeId:u64be | offset:u64be | length:u64be].
func (d Description) encode() [slotSize]byte {
	var buf [slotSize]byte
	if d.Live {
		buf[0] = 1
	}
	binary.BigEndian.PutUint64(buf[1:9], uint64(d.ID))
	binary.BigEndian.PutUint64(buf[9:17], d.Range.Offset)
	binary.BigEndian.PutUint64(buf[17:25], d.Range.Length)
	return buf
}

// decodeDescription parses a slotSize-byte slot previously produced by
// Description.encode.
func decodeDescription(buf []byte) (Description, error) {
	if len(buf) != slotSize {
		return Description{}, ErrCorruption
	}
	return Description{
		Live: buf[0] != 0,
		ID:   StoreID(binary.BigEndian.Uint64(buf[1:9])),
		Range: DataRange{
			Offset: binary.BigEndian.Uint64(buf[9:17]),
			Length: binary.BigEndian.Uint64(buf[17:25]),
		},
	}, nil
}
