package images

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

type fakeStore struct {
	inventory map[string]string
	invErr    error
	fail      map[string]bool
	uploads   []string
}

func (s *fakeStore) Inventory(context.Context) (map[string]string, error) {
	return s.inventory, s.invErr
}

func (s *fakeStore) Upload(_ context.Context, name string, data []byte) (string, error) {
	if s.fail[name] {
		return "", errors.New("remote rejected upload")
	}
	s.uploads = append(s.uploads, name)
	return fmt.Sprintf("id-%d-%s", len(s.uploads), string(data)), nil
}

func exportDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(f), 0644))
	}
	return dir
}

func dom(t *testing.T, body string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
	require.NoError(t, err)
	return d
}

func srcs(d *goquery.Document) []string {
	var out []string
	d.Find("img").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("src")
		out = append(out, v)
	})
	return out
}

const imagesBody = `<table><tr>
	<td><img src="report_html_a1b2.png"></td>
	<td><img src="chart.JPG"></td>
	<td><img src="report_html_a1b2.png"></td>
	<td><img src="notes.txt"></td>
	<td><img src="https://cdn.example.com/logo.png"></td>
</tr></table>`

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.png"))
	assert.True(t, IsImageFile("dir/B.JPEG"))
	assert.False(t, IsImageFile("a.txt"))
	assert.False(t, IsImageFile("noext"))
}

func TestIsLocalRef(t *testing.T) {
	assert.True(t, IsLocalRef("a.png"))
	assert.True(t, IsLocalRef("sub/a.png"))
	assert.False(t, IsLocalRef("https://x/a.png"))
	assert.False(t, IsLocalRef("//x/a.png"))
	assert.False(t, IsLocalRef("data:image/png;base64,AAAA"))
	assert.False(t, IsLocalRef(""))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "report_html_1", Key("Report_HTML_1.png"))
	assert.Equal(t, "report_html_1", Key(" report_html_1 "))
	assert.Equal(t, "report_html_12", ResolvedName("report", 12, "x.png")[:len("report_html_12")])
	assert.Equal(t, "report_html_3.gif", ResolvedName("report", 3, "dir/img.gif"))
}

func TestRename_AssignsDeterministicNames(t *testing.T) {
	dir := exportDir(t, "report_html_a1b2.png", "chart.JPG", "notes.txt")
	doc := core.Document{Index: 0, Name: "report", Dir: dir}
	d := dom(t, imagesBody)

	assets := NewRenamer(nil).Rename(doc, d)

	require.Len(t, assets, 2)
	assert.Equal(t, "report_html_1.png", assets[0].ResolvedName)
	assert.Equal(t, "report_html_a1b2.png", assets[0].OriginalName)
	assert.Equal(t, "report_html_1", assets[0].Key)
	assert.Equal(t, "report_html_2.JPG", assets[1].ResolvedName)

	assert.Equal(t, []string{
		"report_html_1.png",
		"report_html_2.JPG",
		"report_html_1.png",
		"notes.txt",
		"https://cdn.example.com/logo.png",
	}, srcs(d))

	assert.FileExists(t, filepath.Join(dir, "report_html_1.png"))
	assert.FileExists(t, filepath.Join(dir, "report_html_2.JPG"))
	assert.NoFileExists(t, filepath.Join(dir, "chart.JPG"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	data, err := ReadAsset(assets[1])
	require.NoError(t, err)
	assert.Equal(t, "chart.JPG", string(data))
}

func TestRename_IsIdempotent(t *testing.T) {
	dir := exportDir(t, "report_html_a1b2.png", "chart.JPG")
	doc := core.Document{Name: "report", Dir: dir}

	first := NewRenamer(nil).Rename(doc, dom(t, imagesBody))
	second := NewRenamer(nil).Rename(doc, dom(t, imagesBody))

	assert.Equal(t, first, second)
	assert.FileExists(t, filepath.Join(dir, "report_html_1.png"))
	assert.FileExists(t, filepath.Join(dir, "report_html_2.JPG"))
}

func TestRename_SwappedNamesDoNotCollide(t *testing.T) {
	dir := exportDir(t, "doc_html_2.png", "doc_html_1.png")
	doc := core.Document{Name: "doc", Dir: dir}

	assets := NewRenamer(nil).Rename(doc, dom(t, `<img src="doc_html_2.png"><img src="doc_html_1.png">`))
	require.Len(t, assets, 2)

	first, err := ReadAsset(assets[0])
	require.NoError(t, err)
	second, err := ReadAsset(assets[1])
	require.NoError(t, err)
	assert.Equal(t, "doc_html_2.png", string(first))
	assert.Equal(t, "doc_html_1.png", string(second))
}

func TestRename_MissingFileStillNamed(t *testing.T) {
	doc := core.Document{Name: "doc", Dir: t.TempDir()}
	assets := NewRenamer(nil).Rename(doc, dom(t, `<img src="gone.png">`))

	require.Len(t, assets, 1)
	assert.Equal(t, "doc_html_1.png", assets[0].ResolvedName)
	_, err := ReadAsset(assets[0])
	assert.Error(t, err)
}

func TestNewIndex_NormalizesTitles(t *testing.T) {
	idx := NewIndex(map[string]string{
		" Report_HTML_1 ": "069A",
		"report_html_1":   "069B",
		"":                "ignored",
		"other":           "069C",
	})
	assert.Equal(t, 2, idx.Len())

	id, ok := idx.Lookup("REPORT_html_1")
	require.True(t, ok)
	assert.Equal(t, "069A", id)

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)
}

func TestBuildIndex(t *testing.T) {
	idx, err := BuildIndex(context.Background(), &fakeStore{inventory: map[string]string{"a": "1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	idx, err = BuildIndex(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())

	_, err = BuildIndex(context.Background(), &fakeStore{invErr: errors.New("down")})
	assert.True(t, errors.Is(err, core.ErrAssetResolution))
}

func TestResolve_ReusesInventoryAndUploadsTheRest(t *testing.T) {
	dir := exportDir(t, "a_html_1.png", "a_html_2.png")
	assets := []core.ImageAsset{
		{DocumentName: "a", ResolvedName: "a_html_1.png", Key: "a_html_1", LocalPath: filepath.Join(dir, "a_html_1.png")},
		{DocumentName: "a", ResolvedName: "a_html_2.png", Key: "a_html_2", LocalPath: filepath.Join(dir, "a_html_2.png")},
	}
	store := &fakeStore{}
	r := NewResolver(Config{
		Store: store,
		Index: NewIndex(map[string]string{"A_HTML_1": "existing-1"}),
	})

	out, uploads := r.Resolve(context.Background(), assets)

	assert.Equal(t, 1, uploads)
	assert.Equal(t, []string{"a_html_2.png"}, store.uploads)
	assert.Equal(t, "existing-1", out[0].RemoteID)
	assert.True(t, out[0].Reused)
	assert.Equal(t, "id-1-a_html_2.png", out[1].RemoteID)
	assert.False(t, out[1].Reused)
	assert.Empty(t, assets[0].RemoteID, "input slice must not be mutated")
}

func TestResolve_FailureIsContainedToOneImage(t *testing.T) {
	dir := exportDir(t, "a_html_1.png", "a_html_2.png", "a_html_3.png")
	var assets []core.ImageAsset
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("a_html_%d.png", i)
		assets = append(assets, core.ImageAsset{ResolvedName: name, Key: Key(name), LocalPath: filepath.Join(dir, name)})
	}
	store := &fakeStore{fail: map[string]bool{"a_html_2.png": true}}

	out, uploads := NewResolver(Config{Store: store}).Resolve(context.Background(), assets)

	assert.Equal(t, 2, uploads)
	assert.True(t, out[0].Resolved())
	assert.False(t, out[1].Resolved())
	assert.True(t, out[2].Resolved())
}

func TestResolve_SameKeyUploadedOnce(t *testing.T) {
	dir := exportDir(t, "x.png")
	path := filepath.Join(dir, "x.png")
	assets := []core.ImageAsset{
		{DocumentIndex: 0, ResolvedName: "dup_html_1.png", Key: "dup_html_1", LocalPath: path},
		{DocumentIndex: 1, ResolvedName: "dup_html_1.png", Key: "dup_html_1", LocalPath: path},
	}
	store := &fakeStore{}

	out, uploads := NewResolver(Config{Store: store}).Resolve(context.Background(), assets)

	assert.Equal(t, 1, uploads)
	assert.Equal(t, out[0].RemoteID, out[1].RemoteID)
	assert.True(t, out[1].Reused)
}

func TestResolve_NoStoreLeavesUnresolved(t *testing.T) {
	out, uploads := NewResolver(Config{}).Resolve(context.Background(), []core.ImageAsset{{ResolvedName: "a_html_1.png", Key: "a_html_1"}})
	assert.Zero(t, uploads)
	assert.False(t, out[0].Resolved())
}

func TestRewrite(t *testing.T) {
	d := dom(t, `<img src="a_html_1.png"><img src="a_html_2.png"><img src="other.png">`)
	assets := []core.ImageAsset{
		{ResolvedName: "a_html_1.png", RemoteID: "069X"},
		{ResolvedName: "a_html_2.png"},
	}

	rewritten, unresolved := Rewrite(d, assets, "https://kb.example.com/download/", nil)

	assert.Equal(t, 1, rewritten)
	assert.Equal(t, 1, unresolved)
	assert.Equal(t, []string{"https://kb.example.com/download/069X", "a_html_2.png", "other.png"}, srcs(d))
}

func TestRemoteURL(t *testing.T) {
	assert.Equal(t, "https://h/assets/1", RemoteURL("https://h/assets/", "1"))
	assert.Equal(t, "https://h/file?id=1", RemoteURL("https://h/file?id=", "1"))
}
