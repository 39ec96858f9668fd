package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/matcher"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

func TestFilterByReferences(t *testing.T) {
	refs := matcher.NewReferenceSet([]string{"EMR627", "0042"})

	orders := []models.Order{
		{ID: "A", Items: []models.LineItem{{Name: "Conway EMR627 Bike"}}},
		{ID: "B", Items: []models.LineItem{{Name: "Helmet"}}},
		{ID: "C", Notes: "ref 42 y EMR627"},
		{ID: "D", Desc: "pedido 420"},
	}

	result, err := FilterByReferences(orders, refs, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Orders, 2)

	assert.Equal(t, "A", result.Orders[0].ID)
	assert.Equal(t, []string{"EMR627"}, result.Orders[0].MatchingReferences)
	assert.Equal(t, "C", result.Orders[1].ID)
	assert.Equal(t, []string{"42", "EMR627"}, result.Orders[1].MatchingReferences)

	// la entrada no se modifica
	assert.Nil(t, orders[0].MatchingReferences)
}

func TestFilterByReferences_NilSet(t *testing.T) {
	_, err := FilterByReferences([]models.Order{{ID: "A"}}, nil, zap.NewNop())

	assert.ErrorIs(t, err, ErrNoReferences)
}

func TestFilterByReferences_EmptyInputs(t *testing.T) {
	testCases := []struct {
		name   string
		orders []models.Order
		refs   []string
	}{
		{name: "no orders", orders: nil, refs: []string{"EMR627"}},
		{name: "empty catalog", orders: []models.Order{{ID: "A", Desc: "EMR627"}}, refs: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := FilterByReferences(tc.orders, matcher.NewReferenceSet(tc.refs), nil)

			require.NoError(t, err)
			assert.Empty(t, result.Orders)
			assert.NotNil(t, result.Orders)
		})
	}
}

func TestFilterByReferences_IsolatesPanickingOrder(t *testing.T) {
	original := matchOrder
	t.Cleanup(func() { matchOrder = original })
	matchOrder = func(order models.Order, refs *matcher.ReferenceSet) []string {
		if order.ID == "boom" {
			panic("malformed order")
		}
		return original(order, refs)
	}

	orders := []models.Order{
		{ID: "boom", Desc: "EMR627"},
		{ID: "ok", Desc: "EMR627"},
	}

	result, err := FilterByReferences(orders, matcher.NewReferenceSet([]string{"EMR627"}), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, "ok", result.Orders[0].ID)
}
