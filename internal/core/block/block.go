package block

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Block is one sealed batch of confirmed transactions. Blocks exist to give
// clients a confirmation boundary and a height axis; consensus is out of
// scope for a single-sequencer chain.
type Block struct {
	Height   uint64   `json:"height"`
	Hash     string   `json:"hash"`
	Parent   string   `json:"parent"`
	Time     int64    `json:"time"`
	TxHashes []string `json:"tx_hashes"`
}

// ComputeHash chains the parent hash with the block contents.
func ComputeHash(height uint64, parent string, blockTime int64, txHashes []string) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	h.Write(buf[:])
	h.Write([]byte(parent))
	binary.BigEndian.PutUint64(buf[:], uint64(blockTime))
	h.Write(buf[:])
	for _, tx := range txHashes {
		h.Write([]byte(tx))
	}
	return hex.EncodeToString(h.Sum(nil))
}
