package rab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aerodados/rab-proxy/engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	html  string
	err   error
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, marca string) (string, error) {
	s.calls = append(s.calls, marca)
	return s.html, s.err
}

func (s *stubFetcher) SourceURL(marca string) string {
	return "https://rab.test/resposta.asp?marca=" + marca
}

type recordingPublisher struct {
	events []LookupEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev LookupEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

var fixedNow = time.Date(2026, 10, 18, 12, 30, 45, 123_000_000, time.UTC)

func newTestService(f Fetcher, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger())}, opts...)
	return NewService(f, nil, opts...)
}

func TestLookup_Found(t *testing.T) {
	f := &stubFetcher{html: `<table><tr><td>Modelo:</td><td>Cessna 172</td></tr></table><a href="/x">Voltar</a>`}
	svc := newTestService(f)

	res, err := svc.Lookup(context.Background(), " pp xdc ")
	require.NoError(t, err)

	assert.Equal(t, []string{"PPXDC"}, f.calls)
	assert.Equal(t, "PPXDC", res.Marca)
	assert.Equal(t, "https://rab.test/resposta.asp?marca=PPXDC", res.Source)
	assert.Equal(t, "2026-10-18T12:30:45.123Z", res.Timestamp())
	assert.Contains(t, res.Fields.Fields(), Field{Label: "Modelo", Value: "Cessna 172"})
	assert.Equal(t, []Link{{Text: "Voltar", Href: "/x"}}, res.Links)
	assert.False(t, res.MaybeNotFound)
}

func TestLookup_EmptyMarcaSkipsFetch(t *testing.T) {
	f := &stubFetcher{}
	svc := newTestService(f)

	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := svc.Lookup(context.Background(), raw)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidMarca), "raw=%q", raw)
	}
	assert.Empty(t, f.calls)
}

func TestLookup_NotFoundWhenNoFields(t *testing.T) {
	f := &stubFetcher{html: `<body><p>Aeronave não encontrada no RAB.</p></body>`}
	svc := newTestService(f)

	res, err := svc.Lookup(context.Background(), "PPZZZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "PPZZZ", nf.Marca)
	assert.True(t, res.MaybeNotFound)
}

func TestLookup_FieldsTakePrecedenceOverHint(t *testing.T) {
	f := &stubFetcher{html: `<body><p>Registro não encontrado</p><table><tr><td>Marca:</td><td>PPXDC</td></tr></table></body>`}
	svc := newTestService(f)

	res, err := svc.Lookup(context.Background(), "PPXDC")
	require.NoError(t, err)
	assert.True(t, res.MaybeNotFound)
	assert.Equal(t, 1, res.Fields.Len())
}

func TestLookup_EmptyPageWithoutHintIsFound(t *testing.T) {
	svc := newTestService(&stubFetcher{html: `<body><p>manutenção</p></body>`})

	res, err := svc.Lookup(context.Background(), "PPXDC")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fields.Len())
	assert.NotNil(t, res.Links)
}

func TestLookup_FetchErrorIsUpstream(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	svc := newTestService(&stubFetcher{err: cause})

	_, err := svc.Lookup(context.Background(), "PPXDC")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLookup_ParseErrorIsUpstream(t *testing.T) {
	failing := ParserFunc(func(string) (Page, error) { return Page{}, errors.New("bad markup") })
	svc := NewService(&stubFetcher{html: "<p>"}, failing, WithLogger(quietLogger()))

	_, err := svc.Lookup(context.Background(), "PPXDC")
	require.Error(t, err)
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "parse", ue.Op)
}

func TestLookup_PublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := &stubFetcher{html: `<table><tr><td>Modelo:</td><td>Cessna 172</td></tr></table>`}
	svc := newTestService(f, WithEvents(pub))

	_, err := svc.Lookup(context.Background(), "ppxdc")
	require.NoError(t, err)

	f.html = `<p>nenhuma aeronave</p>`
	_, err = svc.Lookup(context.Background(), "ppzzz")
	require.Error(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, LookupEvent{Marca: "PPXDC", Found: true, Fields: 1, Links: 0, QueriedAt: fixedNow}, pub.events[0])
	assert.Equal(t, "PPZZZ", pub.events[1].Marca)
	assert.False(t, pub.events[1].Found)
}

func TestLookup_PublishFailureDoesNotFailLookup(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	svc := newTestService(&stubFetcher{html: `<table><tr><td>A</td><td>B</td></tr></table>`}, WithEvents(pub))

	_, err := svc.Lookup(context.Background(), "PPXDC")
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}
