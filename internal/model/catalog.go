package model

// Relationship categorises how the user knows a contact.
type Relationship string

const (
	RelationshipColleague       Relationship = "colleague"
	RelationshipManager         Relationship = "manager"
	RelationshipClient          Relationship = "client"
	RelationshipVendor          Relationship = "vendor"
	RelationshipFriend          Relationship = "friend"
	RelationshipFamily          Relationship = "family"
	RelationshipMentor          Relationship = "mentor"
	RelationshipBusinessPartner Relationship = "business_partner"
)

// Relationships lists every relationship category with its display label.
var Relationships = []Option[Relationship]{
	{ID: RelationshipColleague, Label: "Colleague"},
	{ID: RelationshipManager, Label: "Manager"},
	{ID: RelationshipClient, Label: "Client"},
	{ID: RelationshipVendor, Label: "Vendor"},
	{ID: RelationshipFriend, Label: "Friend"},
	{ID: RelationshipFamily, Label: "Family"},
	{ID: RelationshipMentor, Label: "Mentor"},
	{ID: RelationshipBusinessPartner, Label: "Business Partner"},
}

// Valid reports whether r is a known relationship. The empty value is valid.
func (r Relationship) Valid() bool {
	return r == "" || contains(Relationships, r)
}

// BudgetRange is a coarse gift budget category.
type BudgetRange string

const (
	BudgetLow     BudgetRange = "low"
	BudgetMedium  BudgetRange = "medium"
	BudgetHigh    BudgetRange = "high"
	BudgetPremium BudgetRange = "premium"
)

// Budget describes the price band behind a BudgetRange.
type Budget struct {
	ID    BudgetRange `json:"id"`
	Label string      `json:"label"`
	Min   float64     `json:"min"`
	Max   float64     `json:"max"`
}

// BudgetRanges lists the budget bands in ascending order.
var BudgetRanges = []Budget{
	{ID: BudgetLow, Label: "$25 - $50", Min: 25, Max: 50},
	{ID: BudgetMedium, Label: "$50 - $150", Min: 50, Max: 150},
	{ID: BudgetHigh, Label: "$150 - $500", Min: 150, Max: 500},
	{ID: BudgetPremium, Label: "$500+", Min: 500, Max: 10000},
}

// Valid reports whether b is a known budget range. The empty value is valid.
func (b BudgetRange) Valid() bool {
	if b == "" {
		return true
	}
	for _, r := range BudgetRanges {
		if r.ID == b {
			return true
		}
	}
	return false
}

// Occasions is the catalogue of suggested occasions. Profiles and gifts store
// occasions as free text, so values outside this list are allowed.
var Occasions = []Option[string]{
	{ID: "birthday", Label: "Birthday"},
	{ID: "anniversary", Label: "Work Anniversary"},
	{ID: "promotion", Label: "Promotion"},
	{ID: "holiday", Label: "Holiday"},
	{ID: "wedding", Label: "Wedding"},
	{ID: "baby", Label: "Baby Shower"},
	{ID: "retirement", Label: "Retirement"},
	{ID: "thank_you", Label: "Thank You"},
	{ID: "corporate", Label: "Corporate Gift"},
	{ID: "general", Label: "General"},
}

var Industries = []string{
	"Technology",
	"Finance",
	"Healthcare",
	"Education",
	"Legal",
	"Marketing",
	"Consulting",
	"Retail",
	"Manufacturing",
	"Real Estate",
	"Hospitality",
	"Other",
}

var GiftCategories = []string{
	"Electronics",
	"Books & Learning",
	"Food & Beverage",
	"Fashion & Accessories",
	"Home & Office",
	"Experiences",
	"Wellness",
	"Subscription",
	"Personalized",
	"Luxury",
}

// Option is an identifier with a human-readable label.
type Option[T comparable] struct {
	ID    T      `json:"id"`
	Label string `json:"label"`
}

func contains[T comparable](opts []Option[T], id T) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}
