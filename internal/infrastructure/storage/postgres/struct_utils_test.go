package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"machshop/internal/core/entity"
	"machshop/internal/core/id"
	"machshop/internal/domain/catalogs/customer"
	"machshop/internal/domain/orders"
)

type MockCatalog struct {
	entity.BaseCatalog
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

func TestExtractDBColumns_CDCFields(t *testing.T) {
	cols := ExtractDBColumns[MockCatalog]()

	expectedCols := []string{
		"id", "deletion_mark", "version", "attributes", "_deleted_at", "_txid", "code", "name",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
}

func TestExtractDBColumns_OrderSnapshotEmbed(t *testing.T) {
	cols := ExtractDBColumns[orders.Order]()

	// embedded customer snapshot flattens into the order row
	for _, expected := range []string{
		"customer_id", "customer_name", "customer_phone", "customer_email",
		"customer_nic", "customer_address",
		"number", "date", "final_total", "paid_amount", "order_status",
	} {
		assert.Contains(t, cols, expected)
	}

	// table parts are stored separately and must not surface as columns
	assert.NotContains(t, cols, "items")
	assert.NotContains(t, cols, "extras")
}

func TestStructToMap_CDCFields(t *testing.T) {
	now := time.Now().UTC()
	cat := MockCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
				CDCFields: entity.CDCFields{
					TxID:      12345,
					DeletedAt: &now,
				},
			},
		},
		Code: "TEST",
		Name: "Test Name",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, int64(12345), m["_txid"])
	assert.Equal(t, &now, m["_deleted_at"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
}

func TestStructToMap_OrderSnapshotEmbed(t *testing.T) {
	o := orders.NewOrder(id.New(), customer.Info{
		Name:  "Test Customer",
		Phone: "0771234567",
	})

	m := StructToMap(o)

	assert.Equal(t, o.ID, m["id"])
	assert.Equal(t, "Test Customer", m["customer_name"])
	assert.Equal(t, "0771234567", m["customer_phone"])
	assert.NotContains(t, m, "items")
}
