package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

type stubRenderer struct {
	ext string
	err error
}

func (r stubRenderer) Render(g core.DocumentRecords) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("preview of " + g.Document.Name), nil
}

func (r stubRenderer) Extension() string { return r.ext }

var _ core.Sink = (*Writer)(nil)

func record(pos int, title, answer string) core.OutputRecord {
	return core.OutputRecord{
		Position:       pos,
		ID:             "test",
		RecordTypeID:   "012N00000036GnwIAE",
		Title:          title,
		URLName:        "URL-20250102030405000-" + title,
		Summary:        title,
		Answer:         answer,
		Category:       "Auto Import",
		Classification: "Knowledge Material",
	}
}

func result() *core.Result {
	a := core.Document{Index: 0, Name: "a"}
	b := core.Document{Index: 3, Name: "b"}
	empty := core.Document{Index: 4, Name: "empty"}
	return &core.Result{
		PerDocument: []core.DocumentRecords{
			{Document: a, Records: []core.OutputRecord{
				record(0, "a_One", `<table><tr><td style="color: red;">"quoted", comma</td></tr></table>`),
				record(1, "a_Two", "<table><tr><td>two</td></tr></table>"),
			}},
			{Document: b, Records: []core.OutputRecord{record(0, "b", "<table><tr><td>b</td></tr></table>")}},
			{Document: empty},
		},
		All: []core.OutputRecord{
			record(0, "a_One", `<table><tr><td style="color: red;">"quoted", comma</td></tr></table>`),
			record(1, "b", "<table><tr><td>b</td></tr></table>"),
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWrite_Layout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.csv"), []byte("old"), 0644))

	w, err := New(Config{Dir: dir, Renderers: []core.Renderer{stubRenderer{ext: ".md"}}})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), result()))

	for _, name := range []string{"output-0.csv", "output-0.html", "output-0.md", "output-3.csv", "output-3.html", "output-3.md", "output.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "stale.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "output-4.csv"))
	assert.Len(t, w.Written(), 7)

	md, err := os.ReadFile(filepath.Join(dir, "output-3.md"))
	require.NoError(t, err)
	assert.Equal(t, "preview of b", string(md))
}

func TestWrite_CSVContent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), result()))

	rows := readCSV(t, filepath.Join(dir, "output-0.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{
		"0", "test", "012N00000036GnwIAE", "a_One", "URL-20250102030405000-a_One", "a_One",
		`<table><tr><td style="color: red;">"quoted", comma</td></tr></table>`,
		"Auto Import", "Knowledge Material",
	}, rows[1])

	all := readCSV(t, filepath.Join(dir, AggregateFile))
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[2][3])
}

func TestWrite_HTMLConcatenatesRecords(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), result()))

	html, err := os.ReadFile(filepath.Join(dir, "output-0.html"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(html), "<table>"))
	assert.Contains(t, string(html), "two")
}

func TestWrite_PreviewFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Renderers: []core.Renderer{stubRenderer{ext: ".pdf", err: errors.New("no fonts")}}})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), result()))

	assert.NoFileExists(t, filepath.Join(dir, "output-0.pdf"))
	assert.FileExists(t, filepath.Join(dir, "output-0.csv"))
}

func TestWriteCSV_EmptyHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, `"Knowledge__kav","Id","RecordTypeId","Title","UrlName","Summary","Answer","Categorie__c","Category__c"`+"\n", buf.String())
}

func TestWriteCSV_QuotesTextFields(t *testing.T) {
	var buf bytes.Buffer
	rec := record(7, "t", `<td style="x">a, b</td>`)
	require.NoError(t, WriteCSV(&buf, []core.OutputRecord{rec}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`7,"test","012N00000036GnwIAE","t","URL-20250102030405000-t","t","<td style=""x"">a, b</td>","Auto Import","Knowledge Material"`,
		lines[1])

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, `<td style="x">a, b</td>`, rows[1][6])
}
