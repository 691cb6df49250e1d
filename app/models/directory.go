package models

import (
	"sort"
	"time"
)

// DirectoryIndexKey is the single sorted list of published profiles.
const DirectoryIndexKey = "va/directory/index.json"

// DirectoryIndex is the read model behind GET /directory: one entry per
// published slug, kept sorted by slug ascending on every write.
type DirectoryIndex struct {
	Entries   []DirectoryEntry `json:"entries"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// DirectoryEntry is the minimal metadata the directory carries per profile.
type DirectoryEntry struct {
	AccountID   string    `json:"accountId"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"displayName,omitempty"`
	Headline    string    `json:"headline,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Upsert replaces any existing entry for the slug, appends the new one and
// re-sorts the full list by slug ascending.
func (d *DirectoryIndex) Upsert(entry DirectoryEntry) {
	filtered := d.Entries[:0]
	for _, e := range d.Entries {
		if e.Slug != entry.Slug {
			filtered = append(filtered, e)
		}
	}
	d.Entries = append(filtered, entry)
	sort.Slice(d.Entries, func(i, j int) bool {
		return d.Entries[i].Slug < d.Entries[j].Slug
	})
}
