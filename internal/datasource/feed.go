package datasource

import (
	"io"

	"SynthFeed/internal/domain/repository"
)

type named interface{ Name() string }

func closeSource(s interface{}) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type tickFeed struct {
	repository.TickSource
	name string
}

// NewTickFeed adapts a TickSource for the feed runner.
func NewTickFeed(name string, s repository.TickSource) repository.Feed {
	if n, ok := s.(named); ok && name == "" {
		name = n.Name()
	}
	return &tickFeed{TickSource: s, name: name}
}

func (f *tickFeed) Name() string { return f.name }
func (f *tickFeed) Close() error { return closeSource(f.TickSource) }

func (f *tickFeed) Step() ([]float64, error) {
	v, err := f.GetData()
	if err != nil {
		return nil, err
	}
	return v, nil
}

type bidAskFeed struct {
	repository.BidAskSource
	name string
}

// NewBidAskFeed adapts a BidAskSource; each step yields the row-major matrix.
func NewBidAskFeed(name string, s repository.BidAskSource) repository.Feed {
	if n, ok := s.(named); ok && name == "" {
		name = n.Name()
	}
	return &bidAskFeed{BidAskSource: s, name: name}
}

func (f *bidAskFeed) Name() string { return f.name }
func (f *bidAskFeed) Close() error { return closeSource(f.BidAskSource) }

func (f *bidAskFeed) Step() ([]float64, error) {
	m, err := f.GetData()
	if err != nil {
		return nil, err
	}
	return m.Data, nil
}
