package itemstore

import "errors"

// Predicate reports whether item should be included in a query result.
type Predicate func(Item) bool

// Query returns every live item for which pred returns true, built
// strictly on Store's public Ids/Get surface (spec §4.5 composes but
// never reaches into FileManager/LocationManager/ItemManager directly).
//
// Grounded on jpl-au-folio's search.go, which scans every record and
// tests a predicate — but that scan has a latent bug: its inner loop
// uses continue where a single-result search should break, so a
// multi-match file does needless extra work on every call. Query's
// all-results use case does want continue (it collects everything), so
// that shape carries over unchanged. QueryFirst below is where the two
// diverge: it breaks on the first match rather than reproducing the
// bug, per the explicit correctness call made for this store.
func Query(s *Store, pred Predicate) ([]Item, error) {
	ids, err := s.Ids()
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.Get(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// deleted between Ids() and Get(); skip rather than fail
				continue
			}
			return nil, err
		}
		if pred(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// QueryFirst returns the first live item for which pred returns true,
// stopping as soon as one is found, and false if none match.
func QueryFirst(s *Store, pred Predicate) (Item, bool, error) {
	ids, err := s.Ids()
	if err != nil {
		return Item{}, false, err
	}

	for _, id := range ids {
		item, err := s.Get(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return Item{}, false, err
		}
		if pred(item) {
			return item, true, nil
		}
	}
	return Item{}, false, nil
}

// Count returns the number of live items for which pred returns true.
func Count(s *Store, pred Predicate) (int, error) {
	ids, err := s.Ids()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		item, err := s.Get(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return 0, err
		}
		if pred(item) {
			n++
		}
	}
	return n, nil
}
