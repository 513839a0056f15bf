package models

import "strings"

// QueryType distinguishes occupation searches from free keyword searches.
type QueryType string

const (
	QueryTypeOccupation QueryType = "occupation"
	QueryTypeKeyword    QueryType = "keyword"
)

// Valid reports whether t is a known query type.
func (t QueryType) Valid() bool {
	return t == QueryTypeOccupation || t == QueryTypeKeyword
}

// Common domain tags.
const (
	DomainIT      = "it"
	DomainFinance = "finance"
	DomainGeneral = "general"
)

// SearchQuery is one tagged query produced by the planner.
type SearchQuery struct {
	Domain    string    `json:"domain"`
	Type      QueryType `json:"type"`
	Language  string    `json:"language"`
	QueryText string    `json:"query"`
}

// Key is the uniqueness key of a query. Domain and type are not part of it.
func (q SearchQuery) Key() string {
	return strings.ToLower(strings.TrimSpace(q.QueryText))
}

// Label is a short progress label such as "[Keyword] golang".
func (q SearchQuery) Label() string {
	switch q.Type {
	case QueryTypeOccupation:
		return "[Occupation] " + q.QueryText
	default:
		return "[Keyword] " + q.QueryText
	}
}
