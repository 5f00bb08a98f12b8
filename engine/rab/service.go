package rab

import (
	"context"
	"log/slog"
	"time"

	"github.com/aerodados/rab-proxy/engine/domain"
)

// Fetcher returns the raw answer page for a normalized tail number.
type Fetcher interface {
	Fetch(ctx context.Context, marca string) (string, error)
	SourceURL(marca string) string
}

// Parser turns an answer page into a Page.
type Parser interface {
	Parse(html string) (Page, error)
}

// EventPublisher receives a LookupEvent after each completed lookup.
type EventPublisher interface {
	Publish(ctx context.Context, ev LookupEvent) error
}

// Service runs lookups: normalize, fetch, parse, and decide not-found.
type Service struct {
	fetcher Fetcher
	parser  Parser
	events  EventPublisher
	now     func() time.Time
	log     *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithEvents publishes a LookupEvent after every lookup.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock overrides the time source used for QueriedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service. A nil parser means DefaultParser.
func NewService(f Fetcher, p Parser, opts ...Option) *Service {
	if p == nil {
		p = DefaultParser
	}
	s := &Service{
		fetcher: f,
		parser:  p,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Lookup queries the registry for raw. Errors match domain.ErrInvalidMarca
// for bad input, domain.ErrNotFound when the page says so and carries no
// fields, and domain.ErrUpstream for fetch or parse failures. On not-found
// the returned Result is still populated.
func (s *Service) Lookup(ctx context.Context, raw string) (Result, error) {
	marca, err := domain.ParseMarca(raw)
	if err != nil {
		return Result{}, err
	}

	html, err := s.fetcher.Fetch(ctx, marca)
	if err != nil {
		return Result{}, domain.Upstream("fetch", err)
	}

	page, err := s.parser.Parse(html)
	if err != nil {
		return Result{}, domain.Upstream("parse", err)
	}

	res := Result{
		Marca:         marca,
		Source:        s.fetcher.SourceURL(marca),
		QueriedAt:     s.now().UTC(),
		Fields:        page.Fields,
		Links:         page.Links,
		MaybeNotFound: page.MaybeNotFound,
	}
	if res.Links == nil {
		res.Links = []Link{}
	}

	found := !(res.MaybeNotFound && res.Fields.Len() == 0)
	s.publish(ctx, res, found)
	if !found {
		return res, &domain.NotFoundError{Marca: marca}
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, res Result, found bool) {
	if s.events == nil {
		return
	}
	ev := LookupEvent{
		Marca:     res.Marca,
		Found:     found,
		Fields:    res.Fields.Len(),
		Links:     len(res.Links),
		QueriedAt: res.QueriedAt,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish lookup event failed", "marca", res.Marca, "err", err)
	}
}
