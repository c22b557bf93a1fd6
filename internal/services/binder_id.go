package services

import (
	"encoding/base64"
	"fmt"
)

// EncodeBinderID turns a Helvault binder id blob into the text id used for
// Collection.ID and InventoryItem.CollectionID. Every code path that builds
// or compares a collection id must go through this pair.
func EncodeBinderID(blob []byte) string {
	if len(blob) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(blob)
}

// DecodeBinderID reverses EncodeBinderID
func DecodeBinderID(id string) ([]byte, error) {
	if id == "" {
		return nil, nil
	}
	blob, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return nil, fmt.Errorf("invalid collection id %q: %w", id, err)
	}
	return blob, nil
}
