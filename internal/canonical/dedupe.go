package canonical

// Deduper tracks seen identities and normalized URLs within one ingestion
// run. It is owned by the single aggregator goroutine that drains fetch
// results, so no locking is needed.
type Deduper struct {
	seenIDs  map[string]struct{}
	seenURLs map[string]struct{}
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{
		seenIDs:  make(map[string]struct{}),
		seenURLs: make(map[string]struct{}),
	}
}

// Admit records a record's identity and raw URL. It returns false when the
// identity, or the non-empty normalized URL, was already seen in this run;
// first-seen wins and later duplicates are dropped.
func (d *Deduper) Admit(id, rawURL string) bool {
	if _, ok := d.seenIDs[id]; ok {
		return false
	}
	norm := Normalize(rawURL)
	if norm != "" {
		if _, ok := d.seenURLs[norm]; ok {
			return false
		}
		d.seenURLs[norm] = struct{}{}
	}
	d.seenIDs[id] = struct{}{}
	return true
}

// Len returns the number of admitted identities.
func (d *Deduper) Len() int {
	return len(d.seenIDs)
}
