package topology

import "errors"

// Domain errors for the topology package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, topology.ErrTagNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("topology: device not found")

	// ErrNodeNotFound is returned when a node ID does not exist on a device.
	ErrNodeNotFound = errors.New("topology: node not found")

	// ErrTagNotFound is returned when a tag ID does not exist.
	ErrTagNotFound = errors.New("topology: tag not found")

	// ErrTagExists is returned when adding a tag with an ID that already exists.
	ErrTagExists = errors.New("topology: tag already exists")

	// ErrFloorNotFound is returned when a floor ID does not exist.
	ErrFloorNotFound = errors.New("topology: floor not found")

	// ErrFloorExists is returned when adding a floor with an ID that already exists.
	ErrFloorExists = errors.New("topology: floor already exists")

	// ErrRoomNotFound is returned when a room ID does not exist on a floor.
	ErrRoomNotFound = errors.New("topology: room not found")

	// ErrRoomExists is returned when adding a room with an ID that already exists.
	ErrRoomExists = errors.New("topology: room already exists")
)
