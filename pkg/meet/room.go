package meet

import (
	"strings"

	"github.com/google/uuid"
)

const generatedRoomPrefix = "room-"

// GenerateRoomName returns a collision-resistant random room identifier,
// used when a session request supplies none.
func GenerateRoomName() string {
	return generatedRoomPrefix + uuid.NewString()
}

// IsGeneratedRoomName reports whether a room identifier was produced by
// GenerateRoomName.
func IsGeneratedRoomName(room string) bool {
	return strings.HasPrefix(room, generatedRoomPrefix)
}
