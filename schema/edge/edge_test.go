package edge_test

import (
	"testing"

	"github.com/syssam/veloxql/schema/edge"

	"github.com/stretchr/testify/assert"
)

func TestOne(t *testing.T) {
	e := edge.One("Brand", "Brand").Field("BrandId").Descriptor()
	assert.Equal(t, "Brand", e.Name)
	assert.Equal(t, "Brand", e.Target)
	assert.Equal(t, edge.ToOne, e.Cardinality)
	assert.Equal(t, "BrandId", e.ForeignKey)
	assert.False(t, e.Resolved())
	assert.NoError(t, e.Err())
}

func TestMany(t *testing.T) {
	e := edge.Many("Lines", "Line").
		On("TenantId", "TenantId").
		On("Id", "OrderId").
		Descriptor()
	assert.Equal(t, edge.ToMany, e.Cardinality)
	assert.True(t, e.Resolved())
	assert.Equal(t, []string{"TenantId", "Id"}, e.SourceFields())
	assert.Equal(t, []string{"TenantId", "OrderId"}, e.TargetFields())
	assert.NoError(t, e.Err())
	assert.Equal(t, "Many", e.Cardinality.String())
}

func TestDescriptor_Err(t *testing.T) {
	tests := []struct {
		name string
		desc *edge.Descriptor
	}{
		{"missing name", edge.One("", "Brand").Field("BrandId").Descriptor()},
		{"missing target", edge.One("Brand", "").Field("BrandId").Descriptor()},
		{"missing keys", edge.Many("Details", "OrderDetail").Descriptor()},
		{"field and ref", edge.One("Brand", "Brand").Field("BrandId").Ref("Id").Descriptor()},
		{"pairs and field", edge.One("Brand", "Brand").Field("BrandId").On("BrandId", "Id").Descriptor()},
		{"invalid cardinality", edge.To("Brand", "Brand", 0).Field("BrandId").Descriptor()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.desc.Err())
		})
	}
}
