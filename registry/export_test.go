package registry

import "github.com/cockroachdb/pebble"

// SetMerge replaces the store write used by TryPublish; nil restores it.
func (p *Pebble) SetMerge(merge func(key, value []byte, opts *pebble.WriteOptions) error) {
	if merge == nil {
		merge = p.db.Merge
	}
	p.merge = merge
}
