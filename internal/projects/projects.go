// Package projects builds the ordered list of repositories a run has to
// materialize before any stage executes.
package projects

import "strings"

const (
	// Core is the primary project. It must always be first in the clone
	// list: later entries are checked out into its directory tree, so the
	// checkout tooling fails if it does not exist yet.
	Core = "mediawiki/core"
	// Vendor bundles composer dependencies for runs that install from the
	// vendor tree.
	Vendor = "mediawiki/vendor"
	// DefaultSkin is always part of a checkout; MediaWiki does not render
	// without at least one skin.
	DefaultSkin = "mediawiki/skins/Vector"

	extensionPrefix = "mediawiki/extensions/"
	skinPrefix      = "mediawiki/skins/"
)

// Resolution carries everything that feeds the clone list for one run.
type Resolution struct {
	// ProjectUnderTest is the repository that triggered the run, if any.
	ProjectUnderTest string
	// IncludeVendor appends the vendor bundle.
	IncludeVendor bool
	// SkinDependencies and ExtensionDependencies come from the CI
	// environment.
	SkinDependencies      []string
	ExtensionDependencies []string
	// Explicit are additional projects requested on the command line.
	Explicit []string
}

// Resolve returns the ordered, de-duplicated list of repositories to clone.
// Insertion order of first occurrence is preserved and never reordered:
// core first, then the default skin, the vendor bundle when requested, the
// project under test, environment-declared dependencies, and finally the
// explicitly requested projects.
func Resolve(r Resolution) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(project string) {
		project = strings.TrimSpace(project)
		if project == "" || seen[project] {
			return
		}
		seen[project] = true
		out = append(out, project)
	}

	add(Core)
	add(DefaultSkin)
	if r.IncludeVendor {
		add(Vendor)
	}
	if r.ProjectUnderTest != "" {
		add(r.ProjectUnderTest)
	}
	for _, p := range r.SkinDependencies {
		add(p)
	}
	for _, p := range r.ExtensionDependencies {
		add(p)
	}
	for _, p := range r.Explicit {
		add(p)
	}
	return out
}

// IsCoreOrVendor reports whether project is the primary project or the
// vendor bundle.
func IsCoreOrVendor(project string) bool {
	return project == Core || project == Vendor
}

// IsExtension reports whether project is a MediaWiki extension.
func IsExtension(project string) bool {
	return strings.HasPrefix(project, extensionPrefix)
}

// IsSkin reports whether project is a MediaWiki skin.
func IsSkin(project string) bool {
	return strings.HasPrefix(project, skinPrefix)
}

// IsExtOrSkin reports whether project is an extension or a skin.
func IsExtOrSkin(project string) bool {
	return IsExtension(project) || IsSkin(project)
}
