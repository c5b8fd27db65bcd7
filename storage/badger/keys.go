package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/multiquery/core"
)

// Key prefixes for different data types
const (
	documentPrefix   = "docrec:"
	checkpointSuffix = ":chkpt"
)

// makeDocumentKey generates a key for a stored document by ID.
// Format: prefix + big-endian ID, so key order is ID order.
func makeDocumentKey(id core.ID) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s%s", processorType, checkpointSuffix))
}
