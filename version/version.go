package version

var (
	// Version is the main version at the moment.
	// Embedded by --ldflags on build time
	// Versioning should follow the SemVer guidelines
	// https://semver.org/
	Version = "v0.1.0"

	// Commit is the git commit the binary was built from.
	// Embedded by --ldflags on build time
	Commit string

	// Branch is the git branch the binary was built from.
	// Embedded by --ldflags on build time
	Branch string

	// BuildTime is the time the binary was built at.
	// Embedded by --ldflags on build time
	BuildTime string
)
