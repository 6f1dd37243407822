package version

// Version represents the Major.Minor.Patch version tag
// from GIT, set at build time with
// -ldflags "-X github.com/jake-scott/raki/version.Version=..."
var Version string = "dev"
