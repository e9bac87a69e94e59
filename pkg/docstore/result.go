package docstore

// ListResult is the polymorphic return shape of List. Callers type-switch on
// the two variants: Page when ordering or a continuation was requested, All
// when the whole collection was fetched bare.
type ListResult interface {
	listResult()
}

// Page is one page of an ordered listing. Next is nil when the page is empty,
// meaning the listing is exhausted; otherwise it resumes after the last
// document of this page.
type Page struct {
	Docs ResultMap
	Next *Cursor
}

func (Page) listResult() {}

// All is the entire collection, unordered and unpaged.
type All struct {
	Docs ResultMap
}

func (All) listResult() {}
