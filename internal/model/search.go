package model

import "github.com/shopspring/decimal"

type Membership string

const (
	MembershipNone   Membership = "None"
	MembershipActive Membership = Membership(ListTypeActive)
	MembershipWatch  Membership = Membership(ListTypeWatch)
)

func ParseMembership(s string) (Membership, error) {
	switch Membership(s) {
	case MembershipNone, MembershipActive, MembershipWatch:
		return Membership(s), nil
	}
	return "", ErrInvalidListType
}

type SearchResult struct {
	Stock      Stock
	Price      *decimal.Decimal // nil - цену получить не удалось
	Membership Membership
}
