package rab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answerPage = `<html><head><title>RAB</title><style>td { color: red }</style></head>
<body>
<table>
  <tr><th colspan="2">Dados da Aeronave</th></tr>
  <tr><td>Proprietário:</td><td>  AEROCLUBE   DE  SÃO PAULO </td></tr>
  <tr><td>Modelo:</td><td>Cessna 172</td></tr>
  <tr><td>Fabricante :</td><td>CESSNA AIRCRAFT</td></tr>
  <tr><td>Vazio:</td><td>   </td></tr>
  <tr><td></td><td>sem rótulo</td></tr>
  <tr><td>Modelo:</td><td>172N</td></tr>
</table>
<a href="/aeronaves/cons_rab.asp">Nova consulta</a>
<a href="https://www.anac.gov.br/">ANAC</a>
<a href="">vazio</a>
<a href="/x"> </a>
<a>sem href</a>
<a href="https://www.anac.gov.br/">ANAC</a>
</body></html>`

func TestParse_ExtractsFieldsInOrder(t *testing.T) {
	page, err := Parse(answerPage)
	require.NoError(t, err)

	fields := page.Fields.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, Field{Label: "Proprietário", Value: "AEROCLUBE DE SÃO PAULO"}, fields[0])
	assert.Equal(t, Field{Label: "Modelo", Value: "172N"}, fields[1], "duplicate label overwrites in place")
	assert.Equal(t, Field{Label: "Fabricante", Value: "CESSNA AIRCRAFT"}, fields[2])
	assert.False(t, page.MaybeNotFound)
}

func TestParse_ExtractsLinks(t *testing.T) {
	page, err := Parse(answerPage)
	require.NoError(t, err)

	assert.Equal(t, []Link{
		{Text: "Nova consulta", Href: "/aeronaves/cons_rab.asp"},
		{Text: "ANAC", Href: "https://www.anac.gov.br/"},
		{Text: "ANAC", Href: "https://www.anac.gov.br/"},
	}, page.Links)
}

func TestParse_SingleField(t *testing.T) {
	page, err := Parse(`<table><tr><td>Modelo:</td><td>Cessna 172</td></tr></table>`)
	require.NoError(t, err)

	assert.Equal(t, []Field{{Label: "Modelo", Value: "Cessna 172"}}, page.Fields.Fields())

	b, err := json.Marshal(page.Fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Modelo":"Cessna 172"}`, string(b))
}

func TestParse_NotFoundHint(t *testing.T) {
	cases := []string{
		`<p>Aeronave   NÃO ENCONTRADA</p>`,
		`<p>Registro não encontrado.</p>`,
		`<div>Nenhum   registro localizado</div>`,
		`<div>A marca informada não existe</div>`,
		`<div>Marca inexistente no RAB</div>`,
	}
	for _, html := range cases {
		page, err := Parse("<html><body>" + html + "</body></html>")
		require.NoError(t, err)
		assert.True(t, page.MaybeNotFound, html)
		assert.Equal(t, 0, page.Fields.Len())
	}
}

func TestParse_NotFoundIgnoresScripts(t *testing.T) {
	page, err := Parse(`<html><body><script>var msg = "não encontrado";</script><p>ok</p></body></html>`)
	require.NoError(t, err)
	assert.False(t, page.MaybeNotFound)
}

func TestParse_NotFoundWithFields(t *testing.T) {
	page, err := Parse(`<body><p>Registro não encontrado</p><table><tr><td>Marca:</td><td>PPXDC</td></tr></table></body>`)
	require.NoError(t, err)
	assert.True(t, page.MaybeNotFound)
	assert.Equal(t, 1, page.Fields.Len())
}

func TestParse_UnexpectedLayout(t *testing.T) {
	page, err := Parse(`<html><body><div>manutenção programada</div></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Fields.Len())
	assert.NotNil(t, page.Links)
	assert.Empty(t, page.Links)
}

func TestParse_NestedTablesUseDirectCells(t *testing.T) {
	html := `<table><tr><td><table><tr><td>Matrícula:</td><td>12345</td></tr></table></td></tr></table>`
	page, err := Parse(html)
	require.NoError(t, err)

	fields := page.Fields.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "Matrícula", fields[0].Label)
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "a b c", collapse("  a \n\t b  c  "))
	assert.Equal(t, "", collapse(" \n "))
}

func TestCleanLabel(t *testing.T) {
	assert.Equal(t, "Modelo", cleanLabel(" Modelo: "))
	assert.Equal(t, "Modelo", cleanLabel("Modelo :"))
	assert.Equal(t, "Modelo", cleanLabel("Modelo::"))
	assert.Equal(t, "Hora: UTC", cleanLabel("Hora: UTC:"))
	assert.Equal(t, "", cleanLabel(":"))
}
