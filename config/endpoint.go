package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/scan"
)

// Category types.
const (
	DateCategory   = "date"
	PrefixCategory = "prefix"
	RangeCategory  = "range"
	SetCategory    = "set"
)

// Endpoint describes the data of one participant.
type Endpoint struct {
	ID string `mapstructure:"id"`
	// MaxSliceSize is applied to the endpoint once the store is opened, zero
	// keeps the current one.
	MaxSliceSize int        `mapstructure:"max-slice-size"`
	Categories   []Category `mapstructure:"categories"`
}

// Category of an endpoint attribute.
//
// Date categories aggregate down to Granularity and are optionally bounded by
// Lower and Upper dates. Prefix categories aggregate by Offsets. Range
// categories bound integers by Lower and Upper, set categories restrict values
// to Values.
type Category struct {
	Attribute   string   `mapstructure:"attribute"`
	Type        string   `mapstructure:"type"`
	Granularity string   `mapstructure:"granularity"`
	Lower       string   `mapstructure:"lower"`
	Upper       string   `mapstructure:"upper"`
	Offsets     []int    `mapstructure:"offsets"`
	Values      []string `mapstructure:"values"`
}

// Validate checks the endpoint and its categories.
func (e *Endpoint) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("endpoints: empty id")
	}
	if e.MaxSliceSize < 0 {
		return fmt.Errorf("endpoint %s: negative max-slice-size %d", e.ID, e.MaxSliceSize)
	}
	if _, err := e.Layout(); err != nil {
		return err
	}
	return nil
}

// Layout builds the user hierarchy of the endpoint. An endpoint without date
// or prefix categories has a layout that doesn't aggregate.
func (e *Endpoint) Layout() (*hierarchy.Layout, error) {
	categories := make([]hierarchy.Category, 0, len(e.Categories))
	for _, c := range e.Categories {
		category, err := c.build()
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: category %s: %w", e.ID, c.Attribute, err)
		}
		categories = append(categories, category)
	}
	layout, err := hierarchy.NewLayout(categories...)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", e.ID, err)
	}
	return layout, nil
}

func (c *Category) build() (hierarchy.Category, error) {
	switch c.Type {
	case DateCategory:
		granularity := scan.Daily
		if c.Granularity != "" {
			var err error
			granularity, err = scan.ParseGranularity(c.Granularity)
			if err != nil {
				return nil, err
			}
		}
		lower, err := parseOptionalDate(c.Lower)
		if err != nil {
			return nil, fmt.Errorf("lower: %w", err)
		}
		upper, err := parseOptionalDate(c.Upper)
		if err != nil {
			return nil, fmt.Errorf("upper: %w", err)
		}
		return &hierarchy.DateCategory{Attr: c.Attribute, Granularity: granularity, Lower: lower, Upper: upper}, nil
	case PrefixCategory:
		return &hierarchy.PrefixCategory{Attr: c.Attribute, Offsets: c.Offsets}, nil
	case RangeCategory:
		lower, err := strconv.ParseInt(c.Lower, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lower: %w", err)
		}
		upper, err := strconv.ParseInt(c.Upper, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("upper: %w", err)
		}
		return &hierarchy.RangeCategory{Attr: c.Attribute, Lower: lower, Upper: upper}, nil
	case SetCategory:
		return &hierarchy.SetCategory{Attr: c.Attribute, Values: c.Values}, nil
	}
	return nil, fmt.Errorf("unknown category type %q", c.Type)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return scan.ParseDate(s)
}
