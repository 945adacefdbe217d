package datasource

import (
	"errors"
	"fmt"
	"io"

	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
)

// Composite steps its children in order and concatenates their output.
// The first child drives the clock; the composite ends when any child ends.
type Composite struct {
	name     string
	children []repository.TickSource
	assets   models.Assets
	prices   models.PriceVector
	data     models.PriceVector
}

// NewComposite builds a composite over children, which it owns.
// Asset names must be unique across children.
func NewComposite(name string, children ...repository.TickSource) (*Composite, error) {
	if name == "" {
		name = "composite"
	}
	if len(children) == 0 {
		return nil, models.NewConfigError(name, "sources", "at least one source is required")
	}
	c := &Composite{name: name, children: children}
	var nAssets, nFeats int
	seen := make(map[string]int)
	for i, ch := range children {
		if ch == nil {
			return nil, models.NewConfigError(name, "sources", "source %d is nil", i)
		}
		for _, a := range ch.Assets().Names() {
			if j, dup := seen[a]; dup {
				return nil, models.NewConfigError(name, "assets", "asset %q appears in sources %d and %d", a, j, i)
			}
			seen[a] = i
		}
		nAssets += ch.NAssets()
		nFeats += ch.NFeats()
		c.assets = append(c.assets, ch.Assets()...)
	}
	c.prices = make(models.PriceVector, 0, nAssets)
	c.data = make(models.PriceVector, 0, nFeats)
	c.gather()
	return c, nil
}

// gather copies every child's current prices and data into the composite buffers.
func (c *Composite) gather() {
	c.prices, c.data = c.prices[:0], c.data[:0]
	for _, ch := range c.children {
		c.prices = append(c.prices, ch.CurrentPrices()...)
		c.data = append(c.data, ch.CurrentData()...)
	}
}

func (c *Composite) Name() string                      { return c.name }
func (c *Composite) NAssets() int                      { return len(c.prices) }
func (c *Composite) NFeats() int                       { return len(c.data) }
func (c *Composite) Assets() models.Assets             { return c.assets }
func (c *Composite) CurrentPrices() models.PriceVector { return c.prices }
func (c *Composite) CurrentData() models.PriceVector   { return c.data }
func (c *Composite) CurrentTime() int64                { return c.children[0].CurrentTime() }
func (c *Composite) IsDateTime() bool                  { return c.children[0].IsDateTime() }

// Children returns the child sources in registration order.
func (c *Composite) Children() []repository.TickSource { return c.children }

func (c *Composite) DataEnd() bool {
	for _, ch := range c.children {
		if ch.DataEnd() {
			return true
		}
	}
	return false
}

func (c *Composite) GetData() (models.PriceVector, error) {
	for i, ch := range c.children {
		if _, err := ch.GetData(); err != nil {
			return nil, fmt.Errorf("%s: source %d: %w", c.name, i, err)
		}
	}
	c.gather()
	return c.data, nil
}

func (c *Composite) Reset() error {
	var errs []error
	for i, ch := range c.children {
		if err := ch.Reset(); err != nil {
			errs = append(errs, fmt.Errorf("%s: reset source %d: %w", c.name, i, err))
		}
	}
	c.gather()
	return errors.Join(errs...)
}

// Close closes children that hold resources.
func (c *Composite) Close() error {
	var errs []error
	for _, ch := range c.children {
		if cl, ok := ch.(io.Closer); ok {
			errs = append(errs, cl.Close())
		}
	}
	return errors.Join(errs...)
}

var _ repository.TickSource = (*Composite)(nil)
