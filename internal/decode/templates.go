package decode

import "sync"

// FieldSpec is one (field_type, field_length) pair from a Template FlowSet.
type FieldSpec struct {
	Type   uint16
	Length uint16
}

// Template is a v9 template: an ordered sequence of field specs describing
// how to decode subsequent Data FlowSets referencing it. Identity is
// (exporter_source_address, source_id, template_id); re-arrival under the
// same key replaces the previous template (most-recent wins).
type Template struct {
	ID         uint16
	Fields     []FieldSpec
	RecordSize int
}

type templateKey struct {
	exporterIP string
	sourceID   uint32
	templateID uint16
}

// TemplateCache is the shared mutable state described in §3/§5: concurrent
// readers, infrequent writers, keyed by (exporter_ip, source_id,
// template_id). A single RWMutex is sufficient at the scale this collector
// targets; sharding by exporter is a drop-in change if contention appears.
type TemplateCache struct {
	mu    sync.RWMutex
	byKey map[templateKey]*Template
}

// NewTemplateCache returns an empty cache.
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{byKey: make(map[templateKey]*Template)}
}

// Install stores or replaces the template under its (exporter, sourceID,
// templateID) key. Installing the same template twice leaves the cache
// equal to installing it once, since the map assignment is idempotent for
// identical values.
func (c *TemplateCache) Install(exporterIP string, sourceID uint32, t *Template) {
	key := templateKey{exporterIP: exporterIP, sourceID: sourceID, templateID: t.ID}
	c.mu.Lock()
	c.byKey[key] = t
	c.mu.Unlock()
}

// Lookup returns the template for the given key, or nil if no template has
// been observed yet — the caller must drop the referencing Data FlowSet.
func (c *TemplateCache) Lookup(exporterIP string, sourceID uint32, templateID uint16) *Template {
	key := templateKey{exporterIP: exporterIP, sourceID: sourceID, templateID: templateID}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byKey[key]
}

// Len reports the number of installed templates, for metrics.
func (c *TemplateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
