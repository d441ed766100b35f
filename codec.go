package itemstore

// PutFunc encodes value into w. Implementations must not retain w beyond
// the call (spec §6, External interfaces).
type PutFunc func(value any, w *Buffer) error

// GetFunc decodes exactly one value from r, consuming a length known to
// the caller. Implementations must not retain r beyond the call.
type GetFunc func(r *Buffer) (any, error)

// Uint64Codec implements PutFunc/GetFunc for fixed-width 8-byte
// big-endian values, matching spec §8's "Fix 64-bit big-endian varint
// payloads for reproducibility." It is example glue for tests, not part
// of the core — spec §1 keeps value (de)serialization an external
// collaborator.
var Uint64Codec = struct {
	Put PutFunc
	Get GetFunc
}{
	Put: func(value any, w *Buffer) error {
		v, ok := value.(uint64)
		if !ok {
			return ErrInvalidArgument
		}
		return w.PutU64(v)
	},
	Get: func(r *Buffer) (any, error) {
		return r.GetU64()
	},
}

// BytesCodec implements PutFunc/GetFunc for raw []byte values, the
// simplest possible codec for variable-length payloads. The CLI uses it.
var BytesCodec = struct {
	Put PutFunc
	Get GetFunc
}{
	Put: func(value any, w *Buffer) error {
		v, ok := value.([]byte)
		if !ok {
			return ErrInvalidArgument
		}
		return w.PutBytes(v)
	},
	Get: func(r *Buffer) (any, error) {
		view, err := r.GetBytes(r.TransferableData())
		if err != nil {
			return nil, err
		}
		// GetBytes returns a view into the shared Buffer's backing array,
		// which the next Store/Get/Update call reuses (Reset keeps the
		// array). Copy out before returning, since the result is cached
		// and handed back as an Item.Payload expected to stay immutable.
		out := make([]byte, len(view))
		copy(out, view)
		return out, nil
	},
}
