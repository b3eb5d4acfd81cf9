// ABOUTME: Version information for the timeshift player
// ABOUTME: Product and build identifiers reported in logs and metrics
package version

import "strings"

const (
	// Product is the product name
	Product = "Timeshift Player"

	// Manufacturer is the maker reported alongside the product
	Manufacturer = "Resonate"

	// Version is the release version
	Version = "0.3.0"
)

// UserAgent identifies the player in outgoing HTTP requests
func UserAgent() string {
	return strings.ReplaceAll(Product, " ", "") + "/" + Version
}
