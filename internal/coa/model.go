package coa

import "time"

// Nature describes which side of the ledger a group normally carries.
type Nature string

const (
	NatureDebtor   Nature = "DEBTOR"
	NatureCreditor Nature = "CREDITOR"
	NatureDual     Nature = "DUAL"
)

// Category classifies a group for reporting.
type Category string

const (
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryRevenue   Category = "REVENUE"
	CategoryExpense   Category = "EXPENSE"
	CategoryEquity    Category = "EQUITY"
)

// TafsiliType partitions floating detail accounts. Codes are unique per type.
type TafsiliType string

const (
	TafsiliCustomer    TafsiliType = "CUSTOMER"
	TafsiliBankAccount TafsiliType = "BANK_ACCOUNT"
	TafsiliCash        TafsiliType = "CASH"
	TafsiliCostCenter  TafsiliType = "COST_CENTER"
	TafsiliProject     TafsiliType = "PROJECT"
	TafsiliPersonnel   TafsiliType = "PERSONNEL"
	TafsiliOther       TafsiliType = "OTHER"
)

// systemOwnedTypes are maintained by the customer and treasury subsystems.
// This engine reads and references them but never mutates them.
var systemOwnedTypes = map[TafsiliType]bool{
	TafsiliCustomer:    true,
	TafsiliBankAccount: true,
	TafsiliCash:        true,
}

// IsSystemOwned reports whether records of this type belong to an external subsystem.
func (t TafsiliType) IsSystemOwned() bool {
	return systemOwnedTypes[t]
}

func (t TafsiliType) valid() bool {
	switch t {
	case TafsiliCustomer, TafsiliBankAccount, TafsiliCash,
		TafsiliCostCenter, TafsiliProject, TafsiliPersonnel, TafsiliOther:
		return true
	}
	return false
}

// SelectableTafsiliTypes returns the types an operator may create through this
// engine, excluding the system-owned ones.
func SelectableTafsiliTypes() []TafsiliType {
	return []TafsiliType{TafsiliCostCenter, TafsiliProject, TafsiliPersonnel, TafsiliOther}
}

// Group is the root level of the chart of accounts.
type Group struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Nature    Nature    `json:"nature"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeneralLedger sits under a group. Codes are globally unique within the level.
type GeneralLedger struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	GroupID   int64     `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Moein is the subsidiary account level, owned by a general ledger account.
type Moein struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	GLID      int64     `json:"gl_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tafsili is a floating detail account scoped by its type rather than a parent.
type Tafsili struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Title     string      `json:"title"`
	Type      TafsiliType `json:"tafsili_type"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
