package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mwrunner/pkg/logging"
)

// WriteComposerLocal generates composer.local.json so the composer merge
// plugin picks up the composer manifests of every cloned extension.
func (i *Installer) WriteComposerLocal() error {
	var includes []string
	for _, dep := range i.Dependencies {
		dep = strings.TrimSpace(dep)
		if strings.HasPrefix(dep, "mediawiki/extensions/") {
			includes = append(includes, strings.TrimPrefix(dep, "mediawiki/")+"/composer.json")
		}
	}

	out := map[string]any{
		"extra": map[string]any{
			"merge-plugin": map[string]any{"include": includes},
		},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode composer.local.json: %w", err)
	}

	path := filepath.Join(i.InstallPath, "composer.local.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Info("mediawiki", "Created composer.local.json for the merge plugin")
	return nil
}

// ComposerUpdate installs core's PHP dependencies from composer.
func (i *Installer) ComposerUpdate(ctx context.Context) error {
	logging.Info("mediawiki", `Running "composer update" for mediawiki/core`)
	err := runCommand(ctx, i.InstallPath, nil,
		"composer", "update", "--ansi", "--no-progress", "--prefer-dist", "--profile", "-v")
	if err != nil {
		return fmt.Errorf("composer update failed: %w", err)
	}
	return nil
}

// FetchComposerDev installs core's require-dev packages into the vendor
// checkout and completes the dev autoloader via the merge plugin. Vendor
// checkouts ship without dev dependencies, but the test stages need them.
func (i *Installer) FetchComposerDev(ctx context.Context) error {
	coreComposerJSON := filepath.Join(i.InstallPath, "composer.json")
	vendorDir := filepath.Join(i.InstallPath, "vendor")

	data, err := os.ReadFile(coreComposerJSON)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", coreComposerJSON, err)
	}
	var manifest struct {
		RequireDev map[string]string `json:"require-dev"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", coreComposerJSON, err)
	}

	reqs := make([]string, 0, len(manifest.RequireDev))
	for pkg, version := range manifest.RequireDev {
		reqs = append(reqs, pkg+"="+version)
	}
	logging.Debug("mediawiki", "composer require %s", strings.Join(reqs, " "))

	argv := append([]string{
		"composer", "require", "--dev", "--ansi", "--no-progress", "--prefer-dist", "-v",
	}, reqs...)
	if err := runCommand(ctx, vendorDir, nil, argv...); err != nil {
		return fmt.Errorf("composer require --dev failed: %w", err)
	}

	// Point the merge plugin at core's composer.json so autoload-dev is
	// merged into the vendor autoloader.
	err = runCommand(ctx, vendorDir, nil,
		"composer", "config", "extra.merge-plugin.include", coreComposerJSON)
	if err != nil {
		return fmt.Errorf("composer config failed: %w", err)
	}
	err = runCommand(ctx, vendorDir, nil, "composer", "dump-autoload", "--optimize")
	if err != nil {
		return fmt.Errorf("composer dump-autoload failed: %w", err)
	}

	artifacts := []struct{ src, dest string }{
		{coreComposerJSON, "composer.core.json.txt"},
		{filepath.Join(vendorDir, "composer.json"), "composer.vendor.json.txt"},
		{filepath.Join(vendorDir, "composer/autoload_files.php"), "composer.autoload_files.php.txt"},
	}
	for _, a := range artifacts {
		if err := i.CopyLog(a.src, a.dest); err != nil {
			return err
		}
	}
	return nil
}

// NPMInstall prunes and installs core's node dependencies.
func (i *Installer) NPMInstall(ctx context.Context) error {
	if err := runCommand(ctx, i.InstallPath, nil, "npm", "prune"); err != nil {
		return fmt.Errorf("npm prune failed: %w", err)
	}
	if err := runCommand(ctx, i.InstallPath, nil, "npm", "install"); err != nil {
		return fmt.Errorf("npm install failed: %w", err)
	}
	return nil
}
