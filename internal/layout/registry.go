package layout

import (
	"errors"
	"fmt"
)

// ErrUnknownLayout is returned by Registry.Get for a file id the
// registry was not built with.
var ErrUnknownLayout = errors.New("unknown layout")

// Registry is the immutable catalog of record layouts, keyed by file
// id. Construction validates every layout and every cross-file
// reference; a Registry that exists is internally consistent.
type Registry struct {
	layouts map[string]*RecordLayout
}

// NewRegistry builds a registry from the given layouts. It fails on
// any invalid layout, duplicate file id, or foreign key that points at
// a file or field the registry does not contain.
func NewRegistry(layouts ...*RecordLayout) (*Registry, error) {
	r := &Registry{layouts: make(map[string]*RecordLayout, len(layouts))}
	for _, l := range layouts {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.layouts[l.FileID]; dup {
			return nil, fmt.Errorf("layout registry: duplicate file id %s", l.FileID)
		}
		r.layouts[l.FileID] = l
	}
	for _, l := range r.layouts {
		for field, ref := range l.ForeignKeys {
			target, ok := r.layouts[ref.FileID]
			if !ok {
				return nil, fmt.Errorf("layout %s: foreign key %s references unknown file %s",
					l.FileID, field, ref.FileID)
			}
			if _, ok := target.Field(ref.Field); !ok {
				return nil, fmt.Errorf("layout %s: foreign key %s references %s.%s which does not exist",
					l.FileID, field, ref.FileID, ref.Field)
			}
		}
	}
	return r, nil
}

// Get returns the layout for a file id.
func (r *Registry) Get(fileID string) (*RecordLayout, error) {
	l, ok := r.layouts[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayout, fileID)
	}
	return l, nil
}

// FileIDs returns the registered file ids in unspecified order.
func (r *Registry) FileIDs() []string {
	ids := make([]string, 0, len(r.layouts))
	for id := range r.layouts {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered layouts.
func (r *Registry) Len() int { return len(r.layouts) }
