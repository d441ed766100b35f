package itemstore

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// LocationManager owns the set of free byte ranges in the data file. It
// satisfies allocation requests, accepts releases, merges adjacent free
// ranges, and shrinks the file tail when free space borders the end.
//
// Free ranges are kept in a slice sorted by Offset. This makes merge and
// trim a single linear pass and keeps first-fit allocation (spec §9's
// resolved Open Question: "Implementers should choose first-fit for
// simplicity") a linear scan — appropriate at the scale this store
// targets (organize's own cost is documented as linear in the free-list
// size, spec §5). Grounded on the shape of lldb's Allocator
// (_examples/other_examples/.../lldb-falloc.go.go): free space tracked
// as a set of ranges, merged by adjacency, with the file truncated when
// the trailing range is free — simplified here from fixed-size atoms to
// spec's plain byte ranges.
type LocationManager struct {
	fm        *FileManager
	free      []DataRange // sorted by Offset; may contain adjacent entries between merges
	minGrowth uint64

	log *zap.SugaredLogger
}

func newLocationManager(fm *FileManager, minimumDataFileSize int, log *zap.SugaredLogger) *LocationManager {
	return &LocationManager{fm: fm, minGrowth: uint64(minimumDataFileSize), log: log}
}

// initialize computes the initial free set as the complement of the given
// live ranges within [0, dataFileSize). Must be called exactly once after
// FileManager recovery.
func (lm *LocationManager) initialize(liveRanges []DataRange) error {
	total, err := lm.fm.getTotalSpace()
	if err != nil {
		return err
	}

	sorted := make([]DataRange, len(liveRanges))
	copy(sorted, liveRanges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var free []DataRange
	var cursor uint64
	for _, r := range sorted {
		if r.Offset < cursor {
			return fmt.Errorf("%w: live ranges overlap at offset %d", ErrCorruption, r.Offset)
		}
		if r.End() > total {
			return fmt.Errorf("%w: live range %+v exceeds data file length %d", ErrCorruption, r, total)
		}
		if r.Offset > cursor {
			free = append(free, DataRange{Offset: cursor, Length: r.Offset - cursor})
		}
		cursor = r.End()
	}
	if cursor < total {
		free = append(free, DataRange{Offset: cursor, Length: total - cursor})
	}

	lm.free = free
	return nil
}

// getFreeLocation returns a free range of exactly size bytes, carved off
// the front of the first free range that is large enough (first-fit). If
// none is large enough, the data file is grown by
// max(size, minimumDataFileSize) and the search is retried once.
func (lm *LocationManager) getFreeLocation(size uint64) (DataRange, error) {
	if size == 0 {
		return DataRange{}, fmt.Errorf("%w: allocation size must be positive", ErrInvalidArgument)
	}

	for i, r := range lm.free {
		if r.Length < size {
			continue
		}
		alloc := DataRange{Offset: r.Offset, Length: size}
		if r.Length == size {
			lm.free = append(lm.free[:i], lm.free[i+1:]...)
		} else {
			lm.free[i] = DataRange{Offset: r.Offset + size, Length: r.Length - size}
		}
		return alloc, nil
	}

	if err := lm.grow(size); err != nil {
		return DataRange{}, err
	}
	return lm.getFreeLocation(size)
}

// grow extends the data file by max(size, minimumDataFileSize) bytes and
// adds a single free range at the old tail.
func (lm *LocationManager) grow(size uint64) error {
	total, err := lm.fm.getTotalSpace()
	if err != nil {
		return err
	}

	step := size
	if lm.minGrowth > step {
		step = lm.minGrowth
	}
	newTotal := total + step

	if err := lm.fm.setDataFileLength(newTotal); err != nil {
		return err
	}
	lm.free = append(lm.free, DataRange{Offset: total, Length: step})
	sort.Slice(lm.free, func(i, j int) bool { return lm.free[i].Offset < lm.free[j].Offset })

	lm.log.Debugw("grew data file", "from", total, "to", newTotal)
	return nil
}

// addFreeLocation adds rng to the free set without merging. Adjacent
// ranges are tolerated until mergeFreeLocations runs.
func (lm *LocationManager) addFreeLocation(rng DataRange) error {
	if rng.Length == 0 {
		return fmt.Errorf("%w: released range must have positive length", ErrInvalidArgument)
	}

	total, err := lm.fm.getTotalSpace()
	if err != nil {
		return err
	}
	if rng.Offset > total || rng.End() > total {
		return fmt.Errorf("%w: released range %+v is outside the data file", ErrCorruption, rng)
	}
	for _, f := range lm.free {
		if f.overlaps(rng) {
			return fmt.Errorf("%w: released range %+v overlaps an existing free range %+v", ErrCorruption, rng, f)
		}
	}

	lm.free = append(lm.free, rng)
	sort.Slice(lm.free, func(i, j int) bool { return lm.free[i].Offset < lm.free[j].Offset })
	return nil
}

// mergeFreeLocations coalesces every pair of free ranges (a, b) where
// a.End() == b.Offset, per spec invariant I3.
func (lm *LocationManager) mergeFreeLocations() {
	if len(lm.free) == 0 {
		return
	}

	merged := make([]DataRange, 0, len(lm.free))
	cur := lm.free[0]
	for _, next := range lm.free[1:] {
		if cur.adjacent(next) {
			cur.Length += next.Length
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)
	lm.free = merged
}

// trimDataFile removes the highest-offset free range from the free set
// and truncates the data file by that length, if that range touches the
// end of the file. Call mergeFreeLocations first so the trailing free
// range, if any, is a single entry. Never truncates below zero.
func (lm *LocationManager) trimDataFile() error {
	if len(lm.free) == 0 {
		return nil
	}

	total, err := lm.fm.getTotalSpace()
	if err != nil {
		return err
	}

	last := len(lm.free) - 1
	tail := lm.free[last]
	if tail.End() != total {
		return nil
	}

	newTotal := total - tail.Length
	if err := lm.fm.setDataFileLength(newTotal); err != nil {
		return err
	}
	lm.free = lm.free[:last]

	lm.log.Debugw("trimmed data file tail", "removed", tail.Length, "new_total", newTotal)
	return nil
}

// getFreeSpace returns the sum of all free-range lengths.
func (lm *LocationManager) getFreeSpace() uint64 {
	var total uint64
	for _, r := range lm.free {
		total += r.Length
	}
	return total
}

// getFreeLocationCount returns the number of distinct free ranges.
func (lm *LocationManager) getFreeLocationCount() int {
	return len(lm.free)
}
