package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBuiltins(t *testing.T) {
	reg := New()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.archnet.org/sites?page=2", "ArchNet"},
		{"https://archnet.org/", "ArchNet"},
		{"https://www.manar-al-athar.ox.ac.uk/pages/search.php", "Manar al-Athar"},
		{"https://saltresearch.org/discovery/search", "SALT Research"},
		{"https://www.nit-istanbul.org/kielarchive/", "Machiel Kiel Archive"},
		{"https://akkasah.org/en/search", "Akkasah Center"},
	}

	for _, tt := range tests {
		p := reg.Lookup(tt.url)
		require.NotNil(t, p, tt.url)
		assert.Equal(t, tt.want, p.Name, tt.url)
	}
}

func TestLookupUnknownDomain(t *testing.T) {
	reg := New()
	assert.Nil(t, reg.Lookup("https://example.com/archive"))
	assert.Nil(t, reg.Lookup("not a url"))
	assert.Nil(t, reg.Lookup("/relative/path"))
}

func TestLookupDoesNotMatchUnrelatedSuffix(t *testing.T) {
	reg := New()
	// "notarchnet.org" must not match the "archnet.org" pattern.
	assert.Nil(t, reg.Lookup("https://notarchnet.org/sites"))
}

func TestLoadDirMissingIsFine(t *testing.T) {
	reg := New()
	require.NoError(t, reg.LoadDir(filepath.Join(t.TempDir(), "does-not-exist")))
	assert.NotEmpty(t, reg.Domains())
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	pattern := `name: Custom ArchNet
domain: archnet.org
javascript_required: false
container_hints:
  - ".custom-grid"
pre_navigation:
  - action: navigate
    target: /sites
    wait_after: 2s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archnet.yaml"), []byte(pattern), 0644))

	reg := New()
	require.NoError(t, reg.LoadDir(dir))

	p := reg.Lookup("https://www.archnet.org/sites")
	require.NotNil(t, p)
	assert.Equal(t, "Custom ArchNet", p.Name)
	assert.False(t, p.JavaScriptRequired)
	assert.Equal(t, []string{".custom-grid"}, p.ContainerHints)
	require.Len(t, p.PreNavigation, 1)
	assert.Equal(t, "navigate", p.PreNavigation[0].Action)
	assert.Equal(t, "/sites", p.PreNavigation[0].Target)
}

func TestLoadDirNewDomain(t *testing.T) {
	dir := t.TempDir()
	pattern := `name: City Archive
domain: stadtarchiv.example
javascript_required: true
item_hints:
  - ".treffer"
metadata_mappings:
  Title:
    - "Titel"
  Orig. Location:
    - "Ort"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "city.yml"), []byte(pattern), 0644))

	reg := New()
	require.NoError(t, reg.LoadDir(dir))

	p := reg.Lookup("https://www.stadtarchiv.example/suche")
	require.NotNil(t, p)
	assert.Equal(t, "City Archive", p.Name)
	assert.Equal(t, []string{"Titel"}, p.MetadataMappings["Title"])
}

func TestLoadDirRejectsBadFiles(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":\n  - ["), 0644))
		assert.Error(t, New().LoadDir(dir))
	})

	t.Run("missing domain", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nodomain.yaml"), []byte("name: Nameless\n"), 0644))
		assert.Error(t, New().LoadDir(dir))
	})
}

func TestLoadDirIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not yaml"), 0644))

	reg := New()
	before := len(reg.Domains())
	require.NoError(t, reg.LoadDir(dir))
	assert.Len(t, reg.Domains(), before)
}
