package model

type state int

const (
	DefaultState state = iota
	ExpectingTicker
	ExpectingSearchQuery
)

type Session struct {
	State      state
	ListType   ListType
	LastSearch string
}
