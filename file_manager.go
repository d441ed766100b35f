package itemstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

// liveSlot pairs a description-file Index with the Description recovered
// from it, for slots that were live=true at the time of a scan.
type liveSlot struct {
	Index Index
	Desc  Description
}

// FileManager owns the three on-disk files backing a store: the
// description-slot array, the raw payload bytes, and the 8-byte id
// counter. It performs fixed-size slot I/O, byte-ranged data I/O, and
// monotonic id allocation, and recovers its free-slot list on open.
//
// Durability note: description and data writes go through os.File.WriteAt
// directly with no intervening user-space buffering, so "flush to the OS"
// (spec §4.2) is inherent to the write call itself — no separate fsync is
// issued for them, matching the spec's "no stronger fsync requirement is
// specified." The id counter is the one file bumped on every allocation
// under concurrent crash risk from a half-written 8-byte value, so it goes
// through atomic.WriteFile's write-temp-file-then-sync-then-rename path
// instead.
type FileManager struct {
	descPath string
	dataPath string
	idPath   string

	descFile *os.File
	dataFile *os.File

	lock *fileLock

	freeSlots []Index
	nextSlot  Index
	nextID    uint64

	log *zap.SugaredLogger
}

// storePaths computes the three file paths from config, per spec §6's
// normative directory layout: basePath/storeName/storeName.<suffix>.
func storePaths(cfg Config) (dir, descPath, dataPath, idPath string) {
	dir = filepath.Join(cfg.BasePath, cfg.StoreName)
	stem := filepath.Join(dir, cfg.StoreName)
	return dir, stem + "." + cfg.DescriptionFileSuffix, stem + "." + cfg.DataFileSuffix, stem + "." + cfg.IDFileSuffix
}

// openFileManager opens or creates the three files for cfg, acquires the
// advisory lock, and returns a FileManager ready for initialize.
func openFileManager(cfg Config) (*FileManager, error) {
	dir, descPath, dataPath, idPath := storePaths(cfg)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %w", ErrIo, err)
	}

	descFile, err := os.OpenFile(descPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening description file: %w", ErrIo, err)
	}

	dataFile, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		descFile.Close()
		return nil, fmt.Errorf("%w: opening data file: %w", ErrIo, err)
	}

	lock := &fileLock{}
	lock.setFile(descFile)
	if err := lock.tryLock(); err != nil {
		descFile.Close()
		dataFile.Close()
		return nil, err
	}

	fm := &FileManager{
		descPath: descPath,
		dataPath: dataPath,
		idPath:   idPath,
		descFile: descFile,
		dataFile: dataFile,
		lock:     lock,
		log:      cfg.Logger,
	}
	return fm, nil
}

// initialize scans the description file in Index order, recovering the
// free-slot list internally and returning every slot with live=true. If
// the id file is absent, the counter is initialized to 1. Must be called
// exactly once, immediately after openFileManager.
func (fm *FileManager) initialize(buf *Buffer) ([]liveSlot, error) {
	counter, err := fm.readOrInitIDCounter()
	if err != nil {
		return nil, err
	}
	fm.nextID = counter

	info, err := fm.descFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat description file: %w", ErrIo, err)
	}
	slotCount := info.Size() / slotSize

	live := make([]liveSlot, 0)
	fm.freeSlots = fm.freeSlots[:0]

	raw := make([]byte, slotSize)
	for i := int64(0); i < slotCount; i++ {
		if _, err := fm.descFile.ReadAt(raw, i*slotSize); err != nil {
			return nil, fmt.Errorf("%w: reading slot %d: %w", ErrIo, i, err)
		}

		buf.Reset()
		if err := buf.PutBytes(raw); err != nil {
			return nil, err
		}
		buf.SetMode(modeRead)
		slotBytes, err := buf.GetBytes(slotSize)
		if err != nil {
			return nil, err
		}

		d, err := decodeDescription(slotBytes)
		if err != nil {
			return nil, err
		}

		idx := Index(i)
		if d.Live {
			live = append(live, liveSlot{Index: idx, Desc: d})
		} else {
			fm.freeSlots = append(fm.freeSlots, idx)
		}
	}
	fm.nextSlot = Index(slotCount)

	fm.log.Debugw("recovered description file",
		"slots", slotCount, "live", len(live), "free", len(fm.freeSlots))

	return live, nil
}

func (fm *FileManager) readOrInitIDCounter() (uint64, error) {
	raw, err := os.ReadFile(fm.idPath)
	if os.IsNotExist(err) {
		if err := fm.persistIDCounter(1); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading id file: %w", ErrIo, err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: id file is not 8 bytes", ErrCorruption)
	}
	var b Buffer
	b.Reset()
	b.PutBytes(raw)
	b.SetMode(modeRead)
	v, err := b.GetU64()
	if err != nil {
		return 0, err
	}
	return v, nil
}

// persistIDCounter durably writes v as the next id to allocate, via
// atomic whole-file replace (spec §4.2's id allocation protocol: bump
// before the referencing description is written).
func (fm *FileManager) persistIDCounter(v uint64) error {
	var b Buffer
	b.Reset()
	if err := b.PutU64(v); err != nil {
		return err
	}
	b.SetMode(modeRead)
	payload, err := b.GetBytes(8)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(fm.idPath, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("%w: persisting id counter: %w", ErrIo, err)
	}
	return nil
}

// writeDescription writes exactly one slot's bytes, read from buf in Read
// mode, at index*slotSize. buf must carry exactly slotSize bytes.
func (fm *FileManager) writeDescription(index Index, buf *Buffer) error {
	if buf.TransferableData() != slotSize {
		return fmt.Errorf("%w: description payload must be %d bytes", ErrCorruption, slotSize)
	}
	payload, err := buf.GetBytes(slotSize)
	if err != nil {
		return err
	}
	if _, err := fm.descFile.WriteAt(payload, int64(index)*slotSize); err != nil {
		return fmt.Errorf("%w: writing description slot %d: %w", ErrIo, index, err)
	}
	if index >= fm.nextSlot {
		fm.nextSlot = index + 1
	}
	return nil
}

// clearDescription overwrites the live byte at index*slotSize with 0. The
// rest of the slot may remain stale; only the live flag is normative.
func (fm *FileManager) clearDescription(index Index) error {
	if _, err := fm.descFile.WriteAt([]byte{0}, int64(index)*slotSize); err != nil {
		return fmt.Errorf("%w: clearing description slot %d: %w", ErrIo, index, err)
	}
	return nil
}

// addEmptyIndex records index as reusable by a future allocation.
func (fm *FileManager) addEmptyIndex(index Index) {
	fm.freeSlots = append(fm.freeSlots, index)
}

// createNewStoreCacheEntryDescription allocates a fresh identifier
// (durably bumping the id counter) and a slot Index — reused from the
// free-slot list if non-empty, else appended — and returns the resulting
// Description for rng. The slot is not written to disk by this call; the
// caller persists it via writeDescription.
func (fm *FileManager) createNewStoreCacheEntryDescription(rng DataRange) (Description, Index, error) {
	id := fm.nextID
	if err := fm.persistIDCounter(id + 1); err != nil {
		return Description{}, 0, err
	}
	fm.nextID = id + 1

	var index Index
	if n := len(fm.freeSlots); n > 0 {
		index = fm.freeSlots[n-1]
		fm.freeSlots = fm.freeSlots[:n-1]
	} else {
		index = fm.nextSlot
		fm.nextSlot++
	}

	return Description{Live: true, ID: StoreID(id), Range: rng}, index, nil
}

// readData reads range.Length bytes at range.Offset from the data file
// into buf, switching buf to Write mode first. The caller flips buf to
// Read mode before consuming it.
func (fm *FileManager) readData(rng DataRange, buf *Buffer) error {
	buf.Reset()
	data := make([]byte, rng.Length)
	if rng.Length > 0 {
		if _, err := fm.dataFile.ReadAt(data, int64(rng.Offset)); err != nil {
			return fmt.Errorf("%w: reading data range %+v: %w", ErrIo, rng, err)
		}
	}
	return buf.PutBytes(data)
}

// writeData writes buf.TransferableData() bytes at range.Offset. Fails
// with ErrCorruption if that count doesn't equal range.Length.
func (fm *FileManager) writeData(rng DataRange, buf *Buffer) error {
	if uint64(buf.TransferableData()) != rng.Length {
		return fmt.Errorf("%w: payload length %d does not match range length %d",
			ErrCorruption, buf.TransferableData(), rng.Length)
	}
	data, err := buf.GetBytes(buf.TransferableData())
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := fm.dataFile.WriteAt(data, int64(rng.Offset)); err != nil {
		return fmt.Errorf("%w: writing data range %+v: %w", ErrIo, rng, err)
	}
	return nil
}

// trimDescriptionFileSize truncates the description file so its trailing
// boundary is liveSlotCount slots (the highest live Index + 1, or 0 if no
// slot is live), and drops any free-slot entries at or beyond that
// boundary — they no longer exist on disk.
func (fm *FileManager) trimDescriptionFileSize(liveSlotCount uint64) error {
	if err := fm.descFile.Truncate(int64(liveSlotCount) * slotSize); err != nil {
		return fmt.Errorf("%w: truncating description file: %w", ErrIo, err)
	}

	kept := fm.freeSlots[:0]
	for _, idx := range fm.freeSlots {
		if uint64(idx) < liveSlotCount {
			kept = append(kept, idx)
		}
	}
	fm.freeSlots = kept
	fm.nextSlot = Index(liveSlotCount)
	return nil
}

// getTotalSpace returns the current data-file length.
func (fm *FileManager) getTotalSpace() (uint64, error) {
	info, err := fm.dataFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat data file: %w", ErrIo, err)
	}
	return uint64(info.Size()), nil
}

// setDataFileLength truncates or extends the data file to exactly n
// bytes. Exposed for LocationManager's growth and tail-trim operations.
func (fm *FileManager) setDataFileLength(n uint64) error {
	if err := fm.dataFile.Truncate(int64(n)); err != nil {
		return fmt.Errorf("%w: resizing data file: %w", ErrIo, err)
	}
	return nil
}

// close releases the lock and all file handles. It is not idempotent: a
// second call returns an ErrIo-wrapped error because the files are already
// closed.
func (fm *FileManager) close() error {
	fm.lock.unlock()
	fm.lock.setFile(nil)

	var firstErr error
	if err := fm.descFile.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("%w: closing description file: %w", ErrIo, err)
	}
	if err := fm.dataFile.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("%w: closing data file: %w", ErrIo, err)
	}
	return firstErr
}
