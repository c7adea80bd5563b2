package models

import "github.com/google/uuid"

// Ref identifies a profile sub-document. ID is assigned by the server, which
// sends it as "_id" or, on some endpoints, as "id". LocalID is a transient
// identifier attached on the client so entries can be addressed before they
// have been saved. LocalID is never serialized.
type Ref struct {
	ID      string `json:"_id,omitempty"`
	IDAlias string `json:"id,omitempty"`
	LocalID string `json:"-"`
}

// ServerID is the server-assigned id under either of its wire names.
func (r Ref) ServerID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.IDAlias
}

// Key is the identifier used to address the entry locally.
func (r Ref) Key() string {
	if r.LocalID != "" {
		return r.LocalID
	}
	return r.ServerID()
}

// normalize folds IDAlias into ID.
func (r *Ref) normalize() {
	r.ID = r.ServerID()
	r.IDAlias = ""
}

// newLocalID is a package var so tests can make ids deterministic.
var newLocalID = func(prefix string) string {
	return prefix + uuid.NewString()
}

type keyed interface {
	ref() *Ref
}

// assignLocalIDs gives every entry without a usable key a fresh LocalID.
// Entries whose key repeats an earlier one are re-keyed too, so keys are
// unique within the collection.
func assignLocalIDs[T any, P interface {
	*T
	keyed
}](items []T, prefix string) {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		r := P(&items[i]).ref()
		r.normalize()
		key := r.Key()
		if _, dup := seen[key]; key == "" || dup {
			r.LocalID = newLocalID(prefix)
			key = r.LocalID
		}
		seen[key] = struct{}{}
	}
}

func indexByKey[T any, P interface {
	*T
	keyed
}](items []T, key string) int {
	for i := range items {
		if P(&items[i]).ref().Key() == key {
			return i
		}
	}
	return -1
}
