package mediawiki

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mwrunner/pkg/logging"
)

// extraSettings is prepended to the generated LocalSettings.php so test
// stages find a wiki configured for CI: JavaScript tests enabled, verbose
// debug log, caches that survive parallel requests.
const extraSettings = `<?php
// Configuration prepended by the test runner.
$wgEnableJavaScriptTest = true;
$wgDebugLogFile = getenv( 'MW_LOG_DIR' ) . '/mw-debug.log';
$wgShowExceptionDetails = true;
$wgDevelopmentWarnings = true;
$wgMainCacheType = CACHE_ACCEL;
?>
`

// PostProcessLocalSettings prepends the runner configuration snippet to the
// installer-generated LocalSettings.php, lints the result, and archives a
// copy with the run artifacts.
func (i *Installer) PostProcessLocalSettings(ctx context.Context) error {
	localSettings := filepath.Join(i.InstallPath, "LocalSettings.php")

	installed, err := os.ReadFile(localSettings)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localSettings, err)
	}
	combined := append([]byte(extraSettings), installed...)
	if err := os.WriteFile(localSettings, combined, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localSettings, err)
	}

	if err := runCommand(ctx, i.InstallPath, nil, "php", "-l", localSettings); err != nil {
		return fmt.Errorf("LocalSettings.php does not lint: %w", err)
	}
	return i.CopyLog(localSettings, "LocalSettings.php")
}

// CopyLog archives a generated file with the run artifacts.
func (i *Installer) CopyLog(src, destName string) error {
	dest := filepath.Join(i.LogDir, destName)
	logging.Info("mediawiki", "Copying %s to %s", src, dest)

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return nil
}
