package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	point := PurchasePoint{ID: 1, Name: "Estación Norte", Provider: "EPEC", Active: true}
	distributors := []Distributor{
		{ID: 10, Name: "D-10", PurchasePointID: 1},
		{ID: 11, Name: "D-11", PurchasePointID: 1},
	}
	customers := []Customer{
		{ID: 100, Name: "Pérez", DistributorID: 10, SegmentName: "Residencial", LineName: "L1"},
		{ID: 101, Name: "Gómez", DistributorID: 10},
		{ID: 102, Name: "Orphan", DistributorID: 99},
	}

	node := Build(point, distributors, customers, nil)

	assert.Equal(t, "Estación Norte", node.Name)
	assert.Equal(t, 2, node.TotalDistributors)
	assert.Equal(t, 2, node.TotalCustomers)
	require.Len(t, node.Distributors, 2)
	assert.Equal(t, 2, node.Distributors[0].TotalCustomers)
	assert.Equal(t, "Residencial", node.Distributors[0].Customers[0].SegmentName)
	assert.Equal(t, 0, node.Distributors[1].TotalCustomers)
	assert.NotNil(t, node.Distributors[1].Customers)
	assert.NotNil(t, node.DirectCustomers)
}

func TestBuild_DirectCustomersCount(t *testing.T) {
	distributors := []Distributor{{ID: 20, Name: "Puerto", PurchasePointID: 2}}
	customers := []Customer{{ID: 200, DistributorID: 20}}
	direct := []Customer{{ID: 300, Name: "Directo"}}

	node := Build(PurchasePoint{ID: 2, Name: "Sur"}, distributors, customers, direct)

	assert.Equal(t, 1, node.TotalDistributors)
	assert.Equal(t, 2, node.TotalCustomers)
	assert.Equal(t, 1, node.Distributors[0].TotalCustomers)
	require.Len(t, node.DirectCustomers, 1)
	assert.Equal(t, "Directo", node.DirectCustomers[0].Name)
}

func TestBuild_NoDistributors(t *testing.T) {
	node := Build(PurchasePoint{ID: 2}, nil, nil, nil)
	assert.Equal(t, 0, node.TotalDistributors)
	assert.Equal(t, 0, node.TotalCustomers)
	assert.Empty(t, node.Distributors)
}

func TestSortSummaries(t *testing.T) {
	summaries := []Summary{
		{PurchasePoint: PurchasePoint{ID: 3, Name: "Zárate"}},
		{PurchasePoint: PurchasePoint{ID: 1, Name: "Ñandú"}},
		{PurchasePoint: PurchasePoint{ID: 4, Name: "arroyo"}},
		{PurchasePoint: PurchasePoint{ID: 2, Name: "Nogoyá"}},
		{PurchasePoint: PurchasePoint{ID: 5, Name: "Arroyo"}},
	}

	SortSummaries(summaries)

	var ids []int64
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	// ñ sorts after n in Spanish; equal names fall back to id
	assert.Equal(t, []int64{4, 5, 2, 1, 3}, ids)
}

func TestDistributorIDs(t *testing.T) {
	assert.Equal(t, []int64{4, 9}, DistributorIDs([]Distributor{{ID: 4}, {ID: 9}}))
	assert.Empty(t, DistributorIDs(nil))
}
