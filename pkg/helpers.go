// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package pkg holds small helpers shared across the server: scope-list
// manipulation and the c_hash/at_hash computation used to bind an
// identity token to the code/access_token issued alongside it.
package pkg

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// StringifyScopes joins scope identifiers with a single space, the wire
// format for the `scope` parameter.
func StringifyScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ScopeSubset reports whether every entry of requested is present in
// original. Used by the token endpoint to verify that a narrowed
// `scope`/`resource` request doesn't exceed what the ticket originally
// granted.
func ScopeSubset(requested, original []string) bool {
	have := make(map[string]bool, len(original))
	for _, o := range original {
		have[o] = true
	}
	for _, r := range requested {
		if !have[r] {
			return false
		}
	}
	return true
}

// LeftHash implements the c_hash/at_hash computation shared by the code
// and access_token bindings embedded in an identity token: base64url of
// the left half of SHA-256 of the ASCII bytes of value.
//
// -- https://openid.net/specs/openid-connect-core-1_0.html#CodeIDToken
func LeftHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	half := sum[:len(sum)/2]
	return base64.RawURLEncoding.EncodeToString(half)
}
