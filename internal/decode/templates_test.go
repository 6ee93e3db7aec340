package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateCacheLookupMiss(t *testing.T) {
	c := NewTemplateCache()
	assert.Nil(t, c.Lookup("10.0.0.1", 1, 256))
	assert.Equal(t, 0, c.Len())
}

func TestTemplateCacheInstallIsIdempotent(t *testing.T) {
	c := NewTemplateCache()
	tmpl := &Template{ID: 256, Fields: []FieldSpec{{Type: fieldIPv4SrcAddr, Length: 4}}, RecordSize: 4}

	c.Install("10.0.0.1", 1, tmpl)
	c.Install("10.0.0.1", 1, tmpl)

	assert.Equal(t, 1, c.Len())
	got := c.Lookup("10.0.0.1", 1, 256)
	assert.Equal(t, tmpl, got)
}

func TestTemplateCacheMostRecentWins(t *testing.T) {
	c := NewTemplateCache()
	first := &Template{ID: 256, RecordSize: 4}
	second := &Template{ID: 256, RecordSize: 9}

	c.Install("10.0.0.1", 1, first)
	c.Install("10.0.0.1", 1, second)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 9, c.Lookup("10.0.0.1", 1, 256).RecordSize)
}

func TestTemplateCacheScopedByExporterAndSourceID(t *testing.T) {
	c := NewTemplateCache()
	c.Install("10.0.0.1", 1, &Template{ID: 256, RecordSize: 4})

	assert.Nil(t, c.Lookup("10.0.0.2", 1, 256))
	assert.Nil(t, c.Lookup("10.0.0.1", 2, 256))
}
