package mqtt

import "fmt"

// Topic prefixes per the homie convention and Haven system topics.
//
// Device topics follow homie's hierarchical scheme:
//
//	homie/{deviceId}/{nodeId}/{property}       — reported state (device-owned)
//	homie/{deviceId}/{nodeId}/{property}/set   — commanded state (core-owned)
//
// Haven never publishes to the reported-state topic; devices own it. The
// core's only outbound surface is the /set suffix.
const (
	// TopicPrefixHomie is the base for all device topics.
	TopicPrefixHomie = "homie"

	// TopicPrefixSystem is the base for Haven system topics.
	TopicPrefixSystem = "haven/system"
)

// Topics provides builders for Haven MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	setTopic := topics.PropertySet("d1", "n1", "power")
//	// Returns: "homie/d1/n1/power/set"
type Topics struct{}

// Property returns the topic a device reports a property value on.
//
// Example: homie/d1/n1/power
func (Topics) Property(deviceID, nodeID, property string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixHomie, deviceID, nodeID, property)
}

// PropertySet returns the topic the core commands a property value on.
//
// Example: homie/d1/n1/power/set
func (Topics) PropertySet(deviceID, nodeID, property string) string {
	return fmt.Sprintf("%s/%s/%s/%s/set", TopicPrefixHomie, deviceID, nodeID, property)
}

// AllProperties returns the wildcard pattern matching every reported
// property value. Used by the out-of-scope state ingestion path.
//
// Example: homie/+/+/+
func (Topics) AllProperties() string {
	return fmt.Sprintf("%s/+/+/+", TopicPrefixHomie)
}

// SystemStatus returns the system status topic carrying the core's
// online/offline payloads (including the LWT).
//
// Example: haven/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
