package azcli

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

const (
	brewListCommand    = "brew list --formula"
	brewInstallCommand = "brew update && brew install azure-cli"
	brewMarker         = "azure-cli"

	wingetListCommand    = "winget list --id Microsoft.AzureCLI --disable-interactivity"
	wingetInstallCommand = `powershell -NoProfile -Command "Invoke-WebRequest -Uri https://aka.ms/installazurecliwindows -OutFile $env:TEMP\AzureCLI.msi; Start-Process msiexec.exe -Wait -ArgumentList '/I', \"$env:TEMP\AzureCLI.msi\", '/quiet'"`
	wingetMarker         = "Microsoft.AzureCLI"
)

// InstallManager detects and installs the Azure CLI on the host. Supported
// hosts are macOS (Homebrew) and Windows (winget listing, MSI install).
type InstallManager struct {
	executor Executor
	goos     string
}

func NewInstallManager(executor Executor) *InstallManager {
	return &InstallManager{executor: executor, goos: runtime.GOOS}
}

// IsInstalled checks the platform package listing for the Azure CLI marker.
// A failing package manager counts as "not installed" rather than an error.
func (m *InstallManager) IsInstalled(ctx context.Context) (bool, error) {
	var listCommand, marker string
	switch m.goos {
	case "darwin":
		listCommand, marker = brewListCommand, brewMarker
	case "windows":
		listCommand, marker = wingetListCommand, wingetMarker
	default:
		return false, &UnsupportedPlatformError{OS: m.goos}
	}

	result, err := m.executor.Run(ctx, listCommand, Options{TolerateExitError: true})
	if err != nil {
		return false, fmt.Errorf("list installed packages: %w", err)
	}
	return strings.Contains(result.Raw, marker), nil
}

// Install runs the platform install command once. It neither retries nor
// verifies the installation afterwards; callers ask the user to re-run.
func (m *InstallManager) Install(ctx context.Context) error {
	var installCommand string
	switch m.goos {
	case "darwin":
		installCommand = brewInstallCommand
	case "windows":
		installCommand = wingetInstallCommand
	default:
		return &UnsupportedPlatformError{OS: m.goos}
	}

	if _, err := m.executor.Run(ctx, installCommand, Options{}); err != nil {
		return fmt.Errorf("install Azure CLI: %w", err)
	}
	return nil
}

// RestartRequired reports whether the user must open a new shell before az
// is on the lookup path. The Windows installer edits PATH, which the current
// shell resolved at startup.
func (m *InstallManager) RestartRequired() bool {
	return m.goos == "windows"
}
