package domain

import (
	"fmt"
	"strings"
)

// Collection names used for weak references
const (
	CollectionUsers    = "users"
	CollectionProjects = "projects"
	CollectionTasks    = "tasks"
)

// Ref is a weak reference to another document. The referent may be deleted
// independently, so every Ref must be resolved before it is trusted.
type Ref struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

func UserRef(id string) Ref    { return Ref{Collection: CollectionUsers, ID: id} }
func ProjectRef(id string) Ref { return Ref{Collection: CollectionProjects, ID: id} }
func TaskRef(id string) Ref    { return Ref{Collection: CollectionTasks, ID: id} }

// IsZero reports whether the reference points nowhere
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// Path renders the reference as "collection/id"
func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

func (r Ref) String() string {
	return r.Path()
}

// ParseRef accepts either a bare id (interpreted in the given collection) or
// a "collection/id" path, optionally with a leading slash.
func ParseRef(collection, raw string) (Ref, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	if raw == "" {
		return Ref{}, fmt.Errorf("empty %s reference", collection)
	}
	parts := strings.Split(raw, "/")
	switch len(parts) {
	case 1:
		return Ref{Collection: collection, ID: parts[0]}, nil
	case 2:
		if parts[0] != collection {
			return Ref{}, fmt.Errorf("reference %q does not point into %s", raw, collection)
		}
		return Ref{Collection: collection, ID: parts[1]}, nil
	default:
		return Ref{}, fmt.Errorf("malformed %s reference %q", collection, raw)
	}
}
