package feed

import (
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Version is the feed protocol version sent in the HELLO message.
const Version = 1

// Message types.
const (
	TypeHello          = "HELLO"
	TypeChunkLoaded    = "CHUNK_LOADED"
	TypeChunkModified  = "CHUNK_MODIFIED"
	TypeChunkUnloaded  = "CHUNK_UNLOADED"
	TypeVoxelDestroyed = "VOXEL_DESTROYED"
	TypeObjectSpawned  = "OBJECT_SPAWNED"
	TypeObjectRemoved  = "OBJECT_REMOVED"
)

// Message is one JSON frame of the feed. Chunk voxels are the raw material
// ids in coord.Index order, zstd-compressed and base64-encoded.
type Message struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	Version int    `json:"version,omitempty"`

	Chunk     *[3]int `json:"chunk,omitempty"`
	ChunkSize int     `json:"chunk_size,omitempty"`
	Revision  uint64  `json:"revision,omitempty"`
	Voxels    string  `json:"voxels,omitempty"`

	Position *[3]float32 `json:"position,omitempty"`

	Object      uint64      `json:"object,omitempty"`
	Material    uint8       `json:"material,omitempty"`
	VoxelSize   float32     `json:"voxel_size,omitempty"`
	Orientation *[4]float32 `json:"orientation,omitempty"` // w, x, y, z
	Local       [][3]int    `json:"local,omitempty"`
}

// DecodeVoxels reverses the chunk payload encoding.
func DecodeVoxels(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode voxels: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("decode voxels: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decode voxels: %w", err)
	}
	return out, nil
}
