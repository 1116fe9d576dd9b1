// Package common holds process-wide build metadata and logger setup shared by the binaries.
package common

// Version is set at build time with -ldflags "-X github.com/ruteri/credential-registry/common.Version=..."
var Version = "dev"

// PackageName namespaces metrics and log tags.
const PackageName = "credential-registry"
