package itemstore

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Item is the immutable pair returned to callers: an id and its
// deserialized payload.
type Item struct {
	ID      StoreID
	Payload any
}

// Store is the public façade composing Buffer, FileManager,
// LocationManager, and ItemManager. It is not safe for concurrent use
// from multiple goroutines (spec §5); a debug reentrancy guard panics on
// violation rather than silently serializing calls.
//
// Grounded on jpl-au-folio's db.go: Open/Close lifecycle, crash-flag-
// driven repair-on-open (here: recovery always runs, since spec's
// recovery is cheap and idempotent rather than conditional on a dirty
// flag), and repair.go/compact.go's "rebuild sorted, trim tail" shape for
// Organize.
type Store struct {
	cfg Config

	fm *FileManager
	lm *LocationManager
	im *ItemManager
	buf *Buffer

	encode PutFunc
	decode GetFunc

	closed bool
	busy   bool
}

// Open opens or creates the store named by cfg, recovering any prior
// state. put/get are the caller's value (de)serialization callbacks
// (spec §6); neither may be nil.
func Open(cfg Config, put PutFunc, get GetFunc) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if put == nil || get == nil {
		return nil, fmt.Errorf("%w: put and get callbacks must not be nil", ErrInvalidArgument)
	}

	fm, err := openFileManager(cfg)
	if err != nil {
		return nil, err
	}

	buf := NewBuffer(cfg.ByteBufferSize)

	live, err := fm.initialize(buf)
	if err != nil {
		fm.close()
		return nil, err
	}

	im := newItemManager()
	liveRanges := make([]DataRange, 0, len(live))
	for _, s := range live {
		im.newItem(s.Desc.ID, s.Index, s.Desc)
		liveRanges = append(liveRanges, s.Desc.Range)
	}

	lm := newLocationManager(fm, cfg.MinimumDataFileSize, cfg.Logger)
	if err := lm.initialize(liveRanges); err != nil {
		fm.close()
		return nil, err
	}

	cfg.Logger.Infow("opened store",
		"store_name", cfg.StoreName, "live_items", len(live))

	return &Store{
		cfg:    cfg,
		fm:     fm,
		lm:     lm,
		im:     im,
		buf:    buf,
		encode: put,
		decode: get,
	}, nil
}

// begin asserts the store is open and not already in a call, per spec
// §5's instruction to enforce single-threaded use with a debug check
// rather than silently serializing.
func (s *Store) begin() error {
	if s.closed {
		return ErrClosed
	}
	if s.busy {
		panic("itemstore: concurrent or reentrant use of Store detected")
	}
	s.busy = true
	return nil
}

func (s *Store) end() {
	s.busy = false
}

// Store serializes value, allocates space and an identifier, writes the
// payload then its description, and installs a cache entry.
func (s *Store) Store(value any) (Item, error) {
	if err := s.begin(); err != nil {
		return Item{}, err
	}
	defer s.end()

	s.buf.Reset()
	if err := s.encode(value, s.buf); err != nil {
		return Item{}, err
	}
	s.buf.SetMode(modeRead)
	size := uint64(s.buf.TransferableData())

	rng, err := s.lm.getFreeLocation(size)
	if err != nil {
		return Item{}, err
	}
	if err := s.fm.writeData(rng, s.buf); err != nil {
		return Item{}, err
	}

	desc, index, err := s.fm.createNewStoreCacheEntryDescription(rng)
	if err != nil {
		return Item{}, err
	}
	if err := s.persistDescription(index, desc); err != nil {
		return Item{}, err
	}

	s.im.newItem(desc.ID, index, desc)
	_ = s.im.setPayload(desc.ID, value)

	return Item{ID: desc.ID, Payload: value}, nil
}

// Update requires id to exist, writes value at a freshly allocated range
// of its serialized size, rewrites id's description slot in place (same
// Index, new Range), and only then releases the old range — new data
// before new description, description updated before old space is freed,
// per spec §4.5/§5's ordering guarantee.
func (s *Store) Update(id StoreID, value any) (Item, error) {
	if err := s.begin(); err != nil {
		return Item{}, err
	}
	defer s.end()

	if !s.im.contains(id) {
		return Item{}, ErrNotFound
	}
	index, err := s.im.getStoreIndex(id)
	if err != nil {
		return Item{}, err
	}
	oldRange, err := s.im.getStoreLocation(id)
	if err != nil {
		return Item{}, err
	}

	s.buf.Reset()
	if err := s.encode(value, s.buf); err != nil {
		return Item{}, err
	}
	s.buf.SetMode(modeRead)
	size := uint64(s.buf.TransferableData())

	newRange, err := s.lm.getFreeLocation(size)
	if err != nil {
		return Item{}, err
	}
	if err := s.fm.writeData(newRange, s.buf); err != nil {
		return Item{}, err
	}

	desc := Description{Live: true, ID: id, Range: newRange}
	if err := s.persistDescription(index, desc); err != nil {
		return Item{}, err
	}

	if err := s.lm.addFreeLocation(oldRange); err != nil {
		return Item{}, err
	}

	s.im.setEntry(id, CacheEntry{Index: index, Desc: desc, Payload: value})

	return Item{ID: id, Payload: value}, nil
}

// Get requires id to exist, returning the cached payload if present or
// reading and deserializing it from the data file otherwise.
func (s *Store) Get(id StoreID) (Item, error) {
	if err := s.begin(); err != nil {
		return Item{}, err
	}
	defer s.end()

	if !s.im.contains(id) {
		return Item{}, ErrNotFound
	}

	payload, err := s.im.get(id)
	switch {
	case err == nil:
		return Item{ID: id, Payload: payload}, nil
	case errors.Is(err, ErrNotLoaded):
		// fall through to load from disk
	default:
		return Item{}, err
	}

	rng, err := s.im.getStoreLocation(id)
	if err != nil {
		return Item{}, err
	}
	if err := s.fm.readData(rng, s.buf); err != nil {
		return Item{}, err
	}
	s.buf.SetMode(modeRead)

	value, err := s.decode(s.buf)
	if err != nil {
		return Item{}, err
	}
	_ = s.im.setPayload(id, value)

	return Item{ID: id, Payload: value}, nil
}

// Delete clears id's description slot, frees its slot index and data
// range, and drops its cache entry.
func (s *Store) Delete(id StoreID) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if !s.im.contains(id) {
		return ErrNotFound
	}
	index, err := s.im.getStoreIndex(id)
	if err != nil {
		return err
	}
	rng, err := s.im.getStoreLocation(id)
	if err != nil {
		return err
	}

	if err := s.fm.clearDescription(index); err != nil {
		return err
	}
	s.fm.addEmptyIndex(index)
	if err := s.lm.addFreeLocation(rng); err != nil {
		return err
	}
	s.im.remove(id)

	return nil
}

// Contains reports whether id currently names a live item. It has no
// error result and does not check whether the store is closed: after
// Close it still answers from the in-memory index.
func (s *Store) Contains(id StoreID) bool {
	return s.im.contains(id)
}

// Organize opportunistically compacts the store: trims the description
// file to its highest live slot, merges adjacent free data ranges, and
// trims the data file tail. It never moves live data.
func (s *Store) Organize() error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	var maxSlotPlus1 uint64
	for _, id := range s.im.ids() {
		index, err := s.im.getStoreIndex(id)
		if err != nil {
			return err
		}
		if n := uint64(index) + 1; n > maxSlotPlus1 {
			maxSlotPlus1 = n
		}
	}

	if err := s.fm.trimDescriptionFileSize(maxSlotPlus1); err != nil {
		return err
	}
	s.lm.mergeFreeLocations()
	if err := s.lm.trimDataFile(); err != nil {
		return err
	}
	return nil
}

// GetTotalSpace returns the current data-file length.
func (s *Store) GetTotalSpace() (uint64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.fm.getTotalSpace()
}

// GetFreeSpace returns the sum of all free data-range lengths.
func (s *Store) GetFreeSpace() (uint64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.lm.getFreeSpace(), nil
}

// GetUsedSpace returns GetTotalSpace() - GetFreeSpace().
func (s *Store) GetUsedSpace() (uint64, error) {
	total, err := s.GetTotalSpace()
	if err != nil {
		return 0, err
	}
	free, err := s.GetFreeSpace()
	if err != nil {
		return 0, err
	}
	return total - free, nil
}

// ClearCache drops every cached payload, keeping descriptions intact.
func (s *Store) ClearCache() error {
	if s.closed {
		return ErrClosed
	}
	s.im.clearCache()
	return nil
}

// Ids returns a snapshot of every currently-live StoreID, for use by
// Query and other callers built strictly on the public surface.
func (s *Store) Ids() ([]StoreID, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.im.ids(), nil
}

// Close flushes and releases the store's files. Idempotent: calling
// Close on an already-closed store returns nil. After Close, every other
// operation that returns an error fails with ErrClosed; Contains, which
// returns only a bool, is not gated.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	if s.busy {
		panic("itemstore: concurrent or reentrant use of Store detected")
	}
	s.busy = true
	defer func() { s.busy = false }()

	s.closed = true
	return s.fm.close()
}

// persistDescription encodes desc through the shared buffer and writes
// it to index's slot.
func (s *Store) persistDescription(index Index, desc Description) error {
	s.buf.Reset()
	if err := s.buf.PutStoreItemDescription(desc); err != nil {
		return err
	}
	s.buf.SetMode(modeRead)
	return s.fm.writeDescription(index, s.buf)
}

// Stats is a point-in-time snapshot of store space and item accounting,
// suitable for operational tooling (SPEC_FULL §4.5 NEW).
type Stats struct {
	TotalSpace uint64 `json:"total_space"`
	FreeSpace  uint64 `json:"free_space"`
	UsedSpace  uint64 `json:"used_space"`
	LiveItems  int    `json:"live_items"`
	FreeSlots  int    `json:"free_slots"`
	FreeRanges int    `json:"free_ranges"`
}

// Stats returns a snapshot of current space and item accounting.
func (s *Store) Stats() (Stats, error) {
	if s.closed {
		return Stats{}, ErrClosed
	}
	total, err := s.fm.getTotalSpace()
	if err != nil {
		return Stats{}, err
	}
	free := s.lm.getFreeSpace()
	return Stats{
		TotalSpace: total,
		FreeSpace:  free,
		UsedSpace:  total - free,
		LiveItems:  s.im.count(),
		FreeSlots:  len(s.fm.freeSlots),
		FreeRanges: s.lm.getFreeLocationCount(),
	}, nil
}

// JSON marshals st for operational tooling, via goccy/go-json.
func (st Stats) JSON() ([]byte, error) {
	return json.Marshal(st)
}
