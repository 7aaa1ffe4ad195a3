package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCoreIsAlwaysFirst(t *testing.T) {
	got := Resolve(Resolution{
		Explicit:         []string{"mediawiki/extensions/Foo"},
		ProjectUnderTest: "mediawiki/extensions/Bar",
		IncludeVendor:    true,
	})
	assert.Equal(t, Core, got[0])
}

func TestResolveVendorBundleAppearsExactlyOnce(t *testing.T) {
	got := Resolve(Resolution{
		Explicit:      []string{"mediawiki/extensions/Foo", Vendor},
		IncludeVendor: true,
	})

	count := 0
	for _, p := range got {
		if p == Vendor {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{Core, DefaultSkin, Vendor, "mediawiki/extensions/Foo"}, got)
}

func TestResolveDeduplicatesKeepingFirstOccurrence(t *testing.T) {
	got := Resolve(Resolution{
		ProjectUnderTest:      "mediawiki/extensions/Foo",
		ExtensionDependencies: []string{"mediawiki/extensions/Foo", "mediawiki/extensions/Baz"},
		Explicit:              []string{"mediawiki/extensions/Foo"},
	})
	assert.Equal(t, []string{
		Core,
		DefaultSkin,
		"mediawiki/extensions/Foo",
		"mediawiki/extensions/Baz",
	}, got)
}

func TestResolveEnvironmentDependenciesPreserveOrder(t *testing.T) {
	got := Resolve(Resolution{
		SkinDependencies:      []string{"mediawiki/skins/MonoBook"},
		ExtensionDependencies: []string{"mediawiki/extensions/Scribunto", "mediawiki/extensions/Cite"},
	})
	assert.Equal(t, []string{
		Core,
		DefaultSkin,
		"mediawiki/skins/MonoBook",
		"mediawiki/extensions/Scribunto",
		"mediawiki/extensions/Cite",
	}, got)
}

func TestResolveSkipsBlankEntries(t *testing.T) {
	got := Resolve(Resolution{
		ExtensionDependencies: []string{"", "  ", "mediawiki/extensions/Cite"},
	})
	assert.Equal(t, []string{Core, DefaultSkin, "mediawiki/extensions/Cite"}, got)
}

func TestProjectKindPredicates(t *testing.T) {
	assert.True(t, IsCoreOrVendor(Core))
	assert.True(t, IsCoreOrVendor(Vendor))
	assert.False(t, IsCoreOrVendor("mediawiki/extensions/Foo"))

	assert.True(t, IsExtension("mediawiki/extensions/Foo"))
	assert.False(t, IsExtension(DefaultSkin))

	assert.True(t, IsSkin(DefaultSkin))
	assert.False(t, IsSkin(Core))

	assert.True(t, IsExtOrSkin("mediawiki/extensions/Foo"))
	assert.True(t, IsExtOrSkin(DefaultSkin))
	assert.False(t, IsExtOrSkin(Core))
}
