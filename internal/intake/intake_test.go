package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

type fakeStore struct {
	names []string
	err   error
	calls int
}

func (f *fakeStore) ListFolderNames(context.Context, string) ([]string, error) {
	f.calls++

	return f.names, f.err
}

func newTestGate(store Store) *Gate {
	logger := zerolog.Nop()

	return NewGate(store, &logger)
}

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	}
}

func TestScanNaturalSortOrder(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "10_마감공고", "2_창업지원", "1_소상공인", "공지사항", "안내")

	gate := newTestGate(&fakeStore{})

	items, err := gate.Scan(context.Background(), Options{SiteRoot: root, SiteCode: "gg"})

	require.NoError(t, err)
	require.Len(t, items, 5)

	var got []string
	for _, item := range items {
		got = append(got, item.FolderName)
	}

	assert.Equal(t, []string{"1_소상공인", "2_창업지원", "10_마감공고", "공지사항", "안내"}, got)
}

func TestScanSkipsExistingFolders(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1_신규", "2_기존")

	gate := newTestGate(&fakeStore{names: []string{"2_기존"}})

	items, err := gate.Scan(context.Background(), Options{SiteRoot: root, SiteCode: "gg"})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1_신규", items[0].FolderName)
}

func TestScanForceBypassesIdempotencyGate(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1_기존")

	store := &fakeStore{names: []string{"1_기존"}}
	gate := newTestGate(store)

	items, err := gate.Scan(context.Background(), Options{SiteRoot: root, SiteCode: "gg", Force: true})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Force)
	assert.Zero(t, store.calls, "forced runs must not query stored folder names")
}

func TestScanMissingSiteRootIsNonFatal(t *testing.T) {
	gate := newTestGate(&fakeStore{})

	items, err := gate.Scan(context.Background(), Options{
		SiteRoot: filepath.Join(t.TempDir(), "does-not-exist"),
		SiteCode: "gg",
	})

	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestScanStoreErrorIsFatal(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1_공고")

	gate := newTestGate(&fakeStore{err: errors.New("db down")})

	_, err := gate.Scan(context.Background(), Options{SiteRoot: root, SiteCode: "gg"})

	assert.Error(t, err)
}

func TestScanIgnoresPlainFiles(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1_공고")
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("x"), 0o644))

	gate := newTestGate(&fakeStore{})

	items, err := gate.Scan(context.Background(), Options{SiteRoot: root, SiteCode: "gg"})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1_공고", items[0].FolderName)
}

func TestScanRecursiveQualifiesOnPrimaryOrAttachments(t *testing.T) {
	root := t.TempDir()

	withPrimary := filepath.Join(root, "2024", "1_공고")
	require.NoError(t, os.MkdirAll(withPrimary, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(withPrimary, "content.md"), []byte("# 공고"), 0o644))

	withAttachments := filepath.Join(root, "2024", "2_공고", "attachments")
	require.NoError(t, os.MkdirAll(withAttachments, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(withAttachments, "공고.pdf"), []byte("%PDF"), 0o644))

	// Empty directory: no primary, no attachments.
	mkdirs(t, root, filepath.Join("2024", "3_빈폴더"))

	gate := newTestGate(&fakeStore{})

	items, err := gate.Scan(context.Background(), Options{
		SiteRoot:       root,
		SiteCode:       "gg",
		Recursive:      true,
		PrimaryName:    "content.md",
		AttachmentsDir: "attachments",
	})

	require.NoError(t, err)

	var got []string
	for _, item := range items {
		got = append(got, item.FolderName)
	}

	assert.ElementsMatch(t, []string{"2024_1_공고", "2024_2_공고"}, got)
}

func TestCanonicalFolderNameFlattensAndNormalizes(t *testing.T) {
	root := "/data/sites/gg"

	got := CanonicalFolderName(root, filepath.Join(root, "2024", "1_공고"))
	assert.Equal(t, "2024_1_공고", got)

	// Decomposed Hangul normalizes to the composed form stored in the DB.
	decomposed := norm.NFD.String("지원사업")
	require.NotEqual(t, "지원사업", decomposed)

	got = CanonicalFolderName(root, filepath.Join(root, decomposed))
	assert.Equal(t, "지원사업", got)
}

func TestScanMatchesDecomposedFolderAgainstStoredName(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, norm.NFD.String("1_지원사업"))

	gate := newTestGate(&fakeStore{names: []string{"1_지원사업"}})

	items, err := gate.Scan(context.Background(), Options{SiteRoot: root, SiteCode: "gg"})

	require.NoError(t, err)
	assert.Empty(t, items, "decomposed on-disk name must match the stored composed key")
}
