// Package hierarchy projects the purchase point, distributor and customer
// catalog into a tree.
package hierarchy

import (
	"context"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PurchasePoint is a substation where the cooperative buys bulk energy.
type PurchasePoint struct {
	ID        int64
	Name      string
	Provider  string
	Active    bool
	Latitude  *float64
	Longitude *float64
}

// Distributor is a distribution transformer fed by a purchase point.
type Distributor struct {
	ID              int64
	Name            string
	Location        string
	Latitude        *float64
	Longitude       *float64
	PurchasePointID int64
}

// Customer is a supply with its segment and line names already resolved.
// DistributorID is zero for a customer supplied straight from the purchase
// point.
type Customer struct {
	ID            int64
	SupplyNumber  string
	Name          string
	Address       string
	SegmentID     *int64
	SegmentName   string
	LineID        *int64
	LineName      string
	DistributorID int64
	Active        bool
	Latitude      *float64
	Longitude     *float64
	PostalCode    string
}

// DistributorNode is a distributor with its customers.
type DistributorNode struct {
	Distributor
	TotalCustomers int
	Customers      []Customer
}

// PurchasePointNode is the root of the tree. TotalCustomers counts the
// distributors' customers plus DirectCustomers.
type PurchasePointNode struct {
	PurchasePoint
	TotalDistributors int
	TotalCustomers    int
	Distributors      []DistributorNode
	DirectCustomers   []Customer
}

// Summary is a purchase point with its counts only.
type Summary struct {
	PurchasePoint
	TotalDistributors int
	TotalCustomers    int
}

// Repository reads the catalog needed by the projection.
type Repository interface {
	// FindPurchasePoint returns shared.ErrNotFound for an unknown id.
	FindPurchasePoint(ctx context.Context, id int64) (*PurchasePoint, error)
	DistributorsOf(ctx context.Context, purchasePointID int64) ([]Distributor, error)
	// CustomersOf lists the active customers of the given distributors that
	// are not tied to a purchase point of their own.
	CustomersOf(ctx context.Context, distributorIDs []int64) ([]Customer, error)
	// DirectCustomersOf lists the active customers tied straight to the point.
	DirectCustomersOf(ctx context.Context, purchasePointID int64) ([]Customer, error)
	// Summaries counts customers with the same rule as the tree: direct
	// customers plus those of the point's active distributors.
	Summaries(ctx context.Context) ([]Summary, error)
}

// Build assembles the tree. Customers of distributors not listed are ignored;
// counts are taken from what is attached.
func Build(point PurchasePoint, distributors []Distributor, customers, direct []Customer) PurchasePointNode {
	byDistributor := make(map[int64][]Customer, len(distributors))
	for _, c := range customers {
		byDistributor[c.DistributorID] = append(byDistributor[c.DistributorID], c)
	}

	node := PurchasePointNode{
		PurchasePoint:   point,
		Distributors:    make([]DistributorNode, 0, len(distributors)),
		DirectCustomers: direct,
	}
	if node.DirectCustomers == nil {
		node.DirectCustomers = []Customer{}
	}
	for _, d := range distributors {
		assigned := byDistributor[d.ID]
		if assigned == nil {
			assigned = []Customer{}
		}
		node.Distributors = append(node.Distributors, DistributorNode{
			Distributor:    d,
			TotalCustomers: len(assigned),
			Customers:      assigned,
		})
		node.TotalCustomers += len(assigned)
	}
	node.TotalCustomers += len(node.DirectCustomers)
	node.TotalDistributors = len(node.Distributors)
	return node
}

// SortSummaries orders summaries by name using Spanish collation, then by id.
func SortSummaries(summaries []Summary) {
	c := collate.New(language.Spanish, collate.IgnoreCase)
	sort.SliceStable(summaries, func(i, j int) bool {
		if r := c.CompareString(summaries[i].Name, summaries[j].Name); r != 0 {
			return r < 0
		}
		return summaries[i].ID < summaries[j].ID
	})
}

// DistributorIDs lists the ids of distributors.
func DistributorIDs(distributors []Distributor) []int64 {
	ids := make([]int64, len(distributors))
	for i, d := range distributors {
		ids[i] = d.ID
	}
	return ids
}
