package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// InputDigest computes the content-addressable identity component for
// (cluster_id, version, input_digest) (§3 "Ownership"): a SHA-256 over
// the sorted key=value pairs of the upstream input artifacts consulted.
func InputDigest(clusterID, version string, inputs map[string]string) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(clusterID))
	h.Write([]byte{0})
	h.Write([]byte(version))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(inputs[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}
