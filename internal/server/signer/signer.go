// Package signer implements the request signature scheme understood by the
// storage provider. The provider recomputes the same digest on its side, so
// the canonical form here must not change.
package signer

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Sign computes the signature for a set of request parameters.
//
// Canonical form: parameters are sorted by key, rendered as "key=value"
// pairs joined with "&", and the signing secret is appended to the end.
// The signature is the lowercase hex SHA-1 digest of that string.
// Empty values are skipped, matching the provider's behaviour.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}

	payload := strings.Join(pairs, "&") + secret
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
