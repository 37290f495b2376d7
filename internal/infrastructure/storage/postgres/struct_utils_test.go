package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bilanco/internal/core/entity"
	"bilanco/internal/core/id"
)

type mockCatalog struct {
	entity.Catalog
	TaxID   *string `db:"tax_id" json:"taxId"`
	Ignored string  `db:"-" json:"ignored"`
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expected := []string{"id", "deletion_mark", "version", "code", "name", "tax_id"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}

	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "ignored")
}

func TestStructToMap_Embedded(t *testing.T) {
	taxID := "1234567890"
	cat := mockCatalog{
		Catalog: entity.Catalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
			},
			Code: "CMP-00001",
			Name: "Demir Çelik Sanayi",
		},
		TaxID:   &taxID,
		Ignored: "not persisted",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "CMP-00001", m["code"])
	assert.Equal(t, "Demir Çelik Sanayi", m["name"])
	assert.Equal(t, &taxID, m["tax_id"])

	_, hasIgnored := m["ignored"]
	assert.False(t, hasIgnored)
}

func TestStructToMap_Pointer(t *testing.T) {
	cat := &mockCatalog{
		Catalog: entity.Catalog{
			BaseEntity: entity.NewBaseEntity(),
			Code:       "CMP-00002",
			Name:       "Ege Tekstil",
		},
	}

	m := StructToMap(cat)

	assert.Equal(t, "CMP-00002", m["code"])
	assert.Nil(t, m["tax_id"])
}
