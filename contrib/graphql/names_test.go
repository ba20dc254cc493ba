package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/relmap/compiler/load"
)

func TestCasing(t *testing.T) {
	tests := []struct {
		in, pascal, camel string
	}{
		{"Customer", "Customer", "customer"},
		{"order_line", "OrderLine", "orderLine"},
		{"createdAt", "CreatedAt", "createdAt"},
		{"ID", "ID", "id"},
		{"URLPath", "URLPath", "urlPath"},
		{"1st", "X1st", "x1st"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.pascal, pascal(tt.in))
			assert.Equal(t, tt.camel, camel(tt.in))
		})
	}
}

func TestTypeNames(t *testing.T) {
	n := newTypeNames()
	shop := load.TypeID{PkgPath: "example.com/shop", Name: "Order"}
	billing := load.TypeID{PkgPath: "example.com/billing", Name: "Order"}
	query := load.TypeID{PkgPath: "example.com/shop", Name: "Query"}

	assert.Equal(t, "Order", n.assign(shop))
	assert.Equal(t, "BillingOrder", n.assign(billing))
	assert.Equal(t, "Order", n.assign(shop))
	assert.Equal(t, "ShopQuery", n.assign(query))
	name, ok := n.of(billing)
	assert.True(t, ok)
	assert.Equal(t, "BillingOrder", name)
}
