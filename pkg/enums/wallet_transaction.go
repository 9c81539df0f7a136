package enums

import "slices"

// WalletTransactionType is the direction of a ledger entry.
type WalletTransactionType string

const (
	WalletTransactionCredit WalletTransactionType = "credit"
	WalletTransactionDebit  WalletTransactionType = "debit"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionCredit,
	WalletTransactionDebit,
}

func (t WalletTransactionType) IsValid() bool {
	return slices.Contains(validWalletTransactionTypes, t)
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	return parseEnum(validWalletTransactionTypes, "wallet transaction type", value)
}

// RelatedEntityType names what a ledger entry documents.
type RelatedEntityType string

const (
	RelatedEntityOrder   RelatedEntityType = "order"
	RelatedEntityFunding RelatedEntityType = "funding"
)

var validRelatedEntityTypes = []RelatedEntityType{
	RelatedEntityOrder,
	RelatedEntityFunding,
}

func (r RelatedEntityType) IsValid() bool {
	return slices.Contains(validRelatedEntityTypes, r)
}

func ParseRelatedEntityType(value string) (RelatedEntityType, error) {
	return parseEnum(validRelatedEntityTypes, "related entity type", value)
}
