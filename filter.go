package nostr

import "slices"

type Filters []Filter

// Filter restricts which events a relay should return. All present fields
// must match (AND); multi-valued fields match any of their values (OR).
type Filter struct {
	IDs     []string   `json:"ids,omitempty"`
	Kinds   []int      `json:"kinds,omitempty"`
	Authors []string   `json:"authors,omitempty"`
	TagE    []string   `json:"#e,omitempty"`
	TagP    []string   `json:"#p,omitempty"`
	Since   *Timestamp `json:"since,omitempty"`
	Until   *Timestamp `json:"until,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}

func (fs Filters) Match(event *Event) bool {
	for _, filter := range fs {
		if filter.Matches(event) {
			return true
		}
	}
	return false
}

func (f Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}

	if f.IDs != nil && !slices.Contains(f.IDs, event.ID) {
		return false
	}

	if f.Kinds != nil && !slices.Contains(f.Kinds, event.Kind) {
		return false
	}

	if f.Authors != nil && !slices.Contains(f.Authors, event.PubKey) {
		return false
	}

	if f.TagE != nil && !event.Tags.ContainsAny("e", f.TagE) {
		return false
	}

	if f.TagP != nil && !event.Tags.ContainsAny("p", f.TagP) {
		return false
	}

	if f.Since != nil && event.CreatedAt < *f.Since {
		return false
	}

	if f.Until != nil && event.CreatedAt > *f.Until {
		return false
	}

	return true
}

func FilterEqual(a Filter, b Filter) bool {
	if !similar(a.Kinds, b.Kinds) {
		return false
	}

	if !similar(a.IDs, b.IDs) {
		return false
	}

	if !similar(a.Authors, b.Authors) {
		return false
	}

	if !similar(a.TagE, b.TagE) {
		return false
	}

	if !similar(a.TagP, b.TagP) {
		return false
	}

	if !arePointerValuesEqual(a.Since, b.Since) {
		return false
	}

	if !arePointerValuesEqual(a.Until, b.Until) {
		return false
	}

	if a.Limit != b.Limit {
		return false
	}

	return true
}

func arePointerValuesEqual[V comparable](a *V, b *V) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}
