// Functional tests exercising Store's public API end to end: store,
// get, update, delete, recovery across reopen, and organize. Each test
// opens a fresh store in a temporary directory; together they cover the
// invariants and scenarios fixed for this store.
package itemstore

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T, name string) Config {
	t.Helper()
	return Config{StoreName: name, BasePath: t.TempDir()}
}

// openTestStore opens a fresh store using the 8-byte big-endian uint64
// codec fixed by the scenarios below, and registers cleanup to close it.
func openTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := Open(cfg, Uint64Codec.Put, Uint64Codec.Get)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustU64(t *testing.T, item Item) uint64 {
	t.Helper()
	v, ok := item.Payload.(uint64)
	if !ok {
		t.Fatalf("payload is %T, not uint64", item.Payload)
	}
	return v
}

// TestEmptyRoundTrip covers scenario 1: an empty store allocates ids 1
// and 2 in order, both round-trip before close, and both still round-trip
// after a reopen.
func TestEmptyRoundTrip(t *testing.T) {
	cfg := testConfig(t, "s1")

	s := openTestStore(t, cfg)
	id1, err := s.Store(uint64(0x11))
	if err != nil {
		t.Fatalf("Store(0x11): %v", err)
	}
	if id1.ID != 1 {
		t.Fatalf("first id = %d, want 1", id1.ID)
	}

	id2, err := s.Store(uint64(0x22))
	if err != nil {
		t.Fatalf("Store(0x22): %v", err)
	}
	if id2.ID != 2 {
		t.Fatalf("second id = %d, want 2", id2.ID)
	}

	if v, err := s.Get(id1.ID); err != nil || mustU64(t, v) != 0x11 {
		t.Fatalf("Get(1) = %v, %v; want 0x11, nil", v, err)
	}
	if v, err := s.Get(id2.ID); err != nil || mustU64(t, v) != 0x22 {
		t.Fatalf("Get(2) = %v, %v; want 0x22, nil", v, err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := openTestStore(t, cfg)
	if v, err := s2.Get(id1.ID); err != nil || mustU64(t, v) != 0x11 {
		t.Fatalf("Get(1) after reopen = %v, %v; want 0x11, nil", v, err)
	}
	if v, err := s2.Get(id2.ID); err != nil || mustU64(t, v) != 0x22 {
		t.Fatalf("Get(2) after reopen = %v, %v; want 0x22, nil", v, err)
	}
}

// TestDeleteReclaim covers scenario 2: deleting an item frees its range,
// and the next store call reuses that range's offset under first-fit.
func TestDeleteReclaim(t *testing.T) {
	s := openTestStore(t, testConfig(t, "s2"))

	item1, err := s.Store(uint64(0x1111111111111111))
	if err != nil {
		t.Fatalf("Store(1): %v", err)
	}
	if _, err := s.Store(uint64(0x2222222222222222)); err != nil {
		t.Fatalf("Store(2): %v", err)
	}

	oldRange, err := s.im.getStoreLocation(item1.ID)
	if err != nil {
		t.Fatalf("getStoreLocation: %v", err)
	}

	if err := s.Delete(item1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	free, err := s.GetFreeSpace()
	if err != nil {
		t.Fatalf("GetFreeSpace: %v", err)
	}
	if free < 8 {
		t.Fatalf("free space = %d, want >= 8", free)
	}

	item3, err := s.Store(uint64(0x3333333333333333))
	if err != nil {
		t.Fatalf("Store(3): %v", err)
	}
	if item3.ID != 3 {
		t.Fatalf("third id = %d, want 3", item3.ID)
	}

	newRange, err := s.im.getStoreLocation(item3.ID)
	if err != nil {
		t.Fatalf("getStoreLocation(3): %v", err)
	}
	if newRange.Offset != oldRange.Offset {
		t.Fatalf("id 3 allocated at offset %d, want former id 1 offset %d",
			newRange.Offset, oldRange.Offset)
	}
}

// TestUpdateGrows covers scenario 3: growing an update frees the old
// range, leaves the slot index unchanged, and the new value round-trips.
func TestUpdateGrows(t *testing.T) {
	// Uint64Codec only emits fixed 8-byte payloads, so this scenario
	// (bytes(4) growing to bytes(12)) needs BytesCodec instead.
	s2, err := Open(testConfig(t, "s3"), BytesCodec.Put, BytesCodec.Get)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s2.Close() })

	created, err := s2.Store([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	oldIndex, err := s2.im.getStoreIndex(created.ID)
	if err != nil {
		t.Fatalf("getStoreIndex: %v", err)
	}
	oldRange, err := s2.im.getStoreLocation(created.ID)
	if err != nil {
		t.Fatalf("getStoreLocation: %v", err)
	}

	grown := make([]byte, 12)
	copy(grown, []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9})
	if _, err := s2.Update(created.ID, grown); err != nil {
		t.Fatalf("Update: %v", err)
	}

	free, err := s2.GetFreeSpace()
	if err != nil {
		t.Fatalf("GetFreeSpace: %v", err)
	}
	if free < oldRange.Length {
		t.Fatalf("free space = %d, want >= %d (old range freed)", free, oldRange.Length)
	}

	got, err := s2.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	payload, ok := got.Payload.([]byte)
	if !ok || len(payload) != 12 {
		t.Fatalf("Get payload = %v, want 12 bytes", got.Payload)
	}

	newIndex, err := s2.im.getStoreIndex(created.ID)
	if err != nil {
		t.Fatalf("getStoreIndex after update: %v", err)
	}
	if newIndex != oldIndex {
		t.Fatalf("slot index changed from %d to %d across update", oldIndex, newIndex)
	}
}

// TestRecoverySkipsClearedMiddle covers scenario 4: deleting the middle
// of three items, then reopening, leaves only the first and third live.
func TestRecoverySkipsClearedMiddle(t *testing.T) {
	cfg := testConfig(t, "s4")
	s := openTestStore(t, cfg)

	first, err := s.Store(uint64(1))
	if err != nil {
		t.Fatalf("Store(1): %v", err)
	}
	second, err := s.Store(uint64(2))
	if err != nil {
		t.Fatalf("Store(2): %v", err)
	}
	third, err := s.Store(uint64(3))
	if err != nil {
		t.Fatalf("Store(3): %v", err)
	}

	if err := s.Delete(second.ID); err != nil {
		t.Fatalf("Delete(second): %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := openTestStore(t, cfg)
	if s2.Contains(second.ID) {
		t.Fatalf("Contains(second) = true after recovery, want false")
	}
	if !s2.Contains(first.ID) {
		t.Fatalf("Contains(first) = false after recovery, want true")
	}
	if !s2.Contains(third.ID) {
		t.Fatalf("Contains(third) = false after recovery, want true")
	}
}

// TestOrganizeTrimsTail covers scenario 5: deleting the highest-offset
// item and calling Organize shrinks the data file by at least that
// item's payload length.
func TestOrganizeTrimsTail(t *testing.T) {
	s, err := Open(testConfig(t, "s5"), BytesCodec.Put, BytesCodec.Get)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.Store(make([]byte, 16)); err != nil {
		t.Fatalf("Store(1): %v", err)
	}
	last, err := s.Store(make([]byte, 32))
	if err != nil {
		t.Fatalf("Store(2): %v", err)
	}

	before, err := s.GetTotalSpace()
	if err != nil {
		t.Fatalf("GetTotalSpace: %v", err)
	}

	if err := s.Delete(last.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Organize(); err != nil {
		t.Fatalf("Organize: %v", err)
	}

	after, err := s.GetTotalSpace()
	if err != nil {
		t.Fatalf("GetTotalSpace after organize: %v", err)
	}
	if before-after < 32 {
		t.Fatalf("total space shrank by %d, want >= 32", before-after)
	}
}

// TestIDMonotonicAcrossReopen covers scenario 6: ids keep increasing
// across a reopen even though the only item stored before it was deleted.
func TestIDMonotonicAcrossReopen(t *testing.T) {
	cfg := testConfig(t, "s6")
	s := openTestStore(t, cfg)

	first, err := s.Store(uint64(7))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Delete(first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := openTestStore(t, cfg)
	second, err := s2.Store(uint64(8))
	if err != nil {
		t.Fatalf("Store after reopen: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("second id %d is not greater than first id %d", second.ID, first.ID)
	}
}

// TestDeleteThenContains covers P6: after delete, Contains is false and
// Get fails with ErrNotFound.
func TestDeleteThenContains(t *testing.T) {
	s := openTestStore(t, testConfig(t, "s7"))

	item, err := s.Store(uint64(42))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Delete(item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Contains(item.ID) {
		t.Fatalf("Contains = true after delete")
	}
	if _, err := s.Get(item.ID); !isNotFound(err) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

// TestSpaceAccounting covers P4: used + free == total at a quiescent
// point.
func TestSpaceAccounting(t *testing.T) {
	s := openTestStore(t, testConfig(t, "s8"))

	for i := uint64(0); i < 5; i++ {
		if _, err := s.Store(i); err != nil {
			t.Fatalf("Store(%d): %v", i, err)
		}
	}

	total, err := s.GetTotalSpace()
	if err != nil {
		t.Fatalf("GetTotalSpace: %v", err)
	}
	free, err := s.GetFreeSpace()
	if err != nil {
		t.Fatalf("GetFreeSpace: %v", err)
	}
	used, err := s.GetUsedSpace()
	if err != nil {
		t.Fatalf("GetUsedSpace: %v", err)
	}
	if used+free != total {
		t.Fatalf("used(%d) + free(%d) = %d, want total %d", used, free, used+free, total)
	}
}

// TestCloseIsIdempotentAndGatesOperations verifies Close may be called
// twice, and every other operation fails with ErrClosed afterward.
func TestCloseIsIdempotentAndGatesOperations(t *testing.T) {
	s := openTestStore(t, testConfig(t, "s9"))

	id, err := s.Store(uint64(1))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := s.Get(id.ID); err != ErrClosed {
		t.Fatalf("Get after close = %v, want ErrClosed", err)
	}
	if _, err := s.Store(uint64(2)); err != ErrClosed {
		t.Fatalf("Store after close = %v, want ErrClosed", err)
	}
}

// TestGetAndDeleteUnknownID verifies NotFound is reported for an id that
// was never allocated.
func TestGetAndDeleteUnknownID(t *testing.T) {
	s := openTestStore(t, testConfig(t, "s10"))

	if _, err := s.Get(9999); !isNotFound(err) {
		t.Fatalf("Get(unknown) = %v, want ErrNotFound", err)
	}
	if err := s.Delete(9999); !isNotFound(err) {
		t.Fatalf("Delete(unknown) = %v, want ErrNotFound", err)
	}
}

// TestClearCacheStillRoundTrips verifies ClearCache drops cached payloads
// without losing the ability to reload them from disk.
func TestClearCacheStillRoundTrips(t *testing.T) {
	s := openTestStore(t, testConfig(t, "s11"))

	id, err := s.Store(uint64(99))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}

	v, err := s.Get(id.ID)
	if err != nil {
		t.Fatalf("Get after ClearCache: %v", err)
	}
	if mustU64(t, v) != 99 {
		t.Fatalf("Get after ClearCache = %v, want 99", v.Payload)
	}
}

// TestStoreDirectoryLayout verifies the three backing files are created
// under basePath/storeName, per the normative layout.
func TestStoreDirectoryLayout(t *testing.T) {
	cfg := testConfig(t, "layout")
	s := openTestStore(t, cfg)
	if _, err := s.Store(uint64(1)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	dir, descPath, dataPath, idPath := storePaths(cfg.withDefaults())
	if dir != filepath.Join(cfg.BasePath, "layout") {
		t.Fatalf("dir = %s", dir)
	}
	for _, p := range []string{descPath, dataPath, idPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("backing file %s missing: %v", p, err)
		}
	}
}

func isNotFound(err error) bool {
	return err == ErrNotFound
}
