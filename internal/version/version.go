// ABOUTME: Version constants for the aircast sender
// ABOUTME: Identifies the product in the transport handshake
package version

const (
	Version      = "0.3.0"
	Product      = "Aircast Sender"
	Manufacturer = "Aircast"
)
