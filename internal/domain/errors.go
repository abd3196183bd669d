package domain

import "errors"

// Error kinds for acquisition failures. Adapters wrap these with
// fmt.Errorf("...: %w", Err...) so callers can classify with errors.Is
// while still seeing the step that failed.
var (
	// ErrNetwork marks a fetch/connect failure against the release provider.
	ErrNetwork = errors.New("network error")

	// ErrProtocol marks a release-provider response that does not match the
	// expected shape.
	ErrProtocol = errors.New("malformed provider response")

	// ErrNoRelease means the provider listed no usable release for the
	// requested channel.
	ErrNoRelease = errors.New("no usable release")

	// ErrUnsupportedPlatform means no release asset matches the running
	// platform. Not retryable.
	ErrUnsupportedPlatform = errors.New("no release asset for this platform")

	// ErrDownload marks a failure while streaming an asset to disk.
	ErrDownload = errors.New("download failed")

	// ErrUnsupportedFormat means the asset's file extension maps to no
	// known archive extractor.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrExtraction marks a corrupt or unreadable archive.
	ErrExtraction = errors.New("archive extraction failed")

	// ErrPermission marks a symlink or chmod failure. Callers downgrade
	// this to a warning: the binary is still usable by absolute path.
	ErrPermission = errors.New("permission error")

	// ErrPathNotFound means the configured custom source path does not exist.
	ErrPathNotFound = errors.New("source path not found")

	// ErrBuild marks a nonzero exit from the build tool.
	ErrBuild = errors.New("build failed")

	// ErrDeclined means the user opted out of an installation. It is a
	// terminal outcome, not a failure.
	ErrDeclined = errors.New("installation declined")
)
