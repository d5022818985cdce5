package scraper

import (
	"errors"
	"fmt"
)

// ScraperConfig defines where the person data lives on a listing site.
type ScraperConfig struct {
	List   ListConfig   `json:"list" yaml:"list"`
	Detail DetailConfig `json:"detail" yaml:"detail"`
}

// ListConfig defines how to discover detail pages from the list page.
type ListConfig struct {
	ContainerSelector string `json:"container_selector" yaml:"container_selector"`
	EntrySelector     string `json:"entry_selector" yaml:"entry_selector"`
	AnchorSelector    string `json:"anchor_selector" yaml:"anchor_selector"`
}

// GroupConfig names one labeled column of a detail page. The column's span
// elements are read as alternating label/value pairs.
type GroupConfig struct {
	Name     string `json:"name" yaml:"name"`
	Selector string `json:"selector" yaml:"selector"`
}

// DetailConfig defines how to extract a person from a detail page.
type DetailConfig struct {
	ContainerSelector string        `json:"container_selector" yaml:"container_selector"`
	HeadlineSelector  string        `json:"headline_selector" yaml:"headline_selector"`
	BodySelector      string        `json:"body_selector" yaml:"body_selector"`
	PairSelector      string        `json:"pair_selector" yaml:"pair_selector"`
	Groups            []GroupConfig `json:"groups" yaml:"groups"`
}

// Group names used by the person record.
const (
	GroupCrime = "crime"
	GroupAbout = "about"
	GroupOther = "other"
)

// ErrUnknownGroup is returned for a group name other than crime, about or
// other.
var ErrUnknownGroup = errors.New("unknown group")

// Validate checks that every group names a field of the person record.
func (c DetailConfig) Validate() error {
	for _, group := range c.Groups {
		switch group.Name {
		case GroupCrime, GroupAbout, GroupOther:
		default:
			return fmt.Errorf("%w %q", ErrUnknownGroup, group.Name)
		}
	}
	return nil
}

// DefaultListConfig returns the selectors of the most-wanted search page.
func DefaultListConfig() ListConfig {
	return ListConfig{
		ContainerSelector: "dl.search-results",
		EntrySelector:     "div.span4",
		AnchorSelector:    "a",
	}
}

// DefaultDetailConfig returns the selectors of a most-wanted detail page.
func DefaultDetailConfig() DetailConfig {
	return DetailConfig{
		ContainerSelector: "div.item-page.most-wanted-grid",
		HeadlineSelector:  `h2[itemprop="headline"]`,
		BodySelector:      `div[itemprop="articleBody"]`,
		PairSelector:      "span",
		Groups: []GroupConfig{
			{Name: GroupCrime, Selector: "div.most-wanted-basic"},
			{Name: GroupAbout, Selector: "div.most-wanted-description"},
			{Name: GroupOther, Selector: "div.most-wanted-additional"},
		},
	}
}

// DefaultScraperConfig returns both default selector sets.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		List:   DefaultListConfig(),
		Detail: DefaultDetailConfig(),
	}
}

// Merge fills every empty field of c from defaults. An empty Groups list is
// replaced as a whole.
func (c ScraperConfig) Merge(defaults ScraperConfig) ScraperConfig {
	out := c

	if out.List.ContainerSelector == "" {
		out.List.ContainerSelector = defaults.List.ContainerSelector
	}
	if out.List.EntrySelector == "" {
		out.List.EntrySelector = defaults.List.EntrySelector
	}
	if out.List.AnchorSelector == "" {
		out.List.AnchorSelector = defaults.List.AnchorSelector
	}

	if out.Detail.ContainerSelector == "" {
		out.Detail.ContainerSelector = defaults.Detail.ContainerSelector
	}
	if out.Detail.HeadlineSelector == "" {
		out.Detail.HeadlineSelector = defaults.Detail.HeadlineSelector
	}
	if out.Detail.BodySelector == "" {
		out.Detail.BodySelector = defaults.Detail.BodySelector
	}
	if out.Detail.PairSelector == "" {
		out.Detail.PairSelector = defaults.Detail.PairSelector
	}
	if len(out.Detail.Groups) == 0 {
		out.Detail.Groups = defaults.Detail.Groups
	}

	return out
}
