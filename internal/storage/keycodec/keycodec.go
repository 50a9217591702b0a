// Package keycodec maps caller keys to filesystem-safe storage identifiers.
//
// An identifier is the lowercase hex of blake2b-256(key). A derived
// identifier for a variant of a key is the original identifier followed by
// "~" and a 128-bit digest of the variant descriptor, so every variant of a
// key shares the key's identifier as a prefix and can be enumerated.
package keycodec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// IdentifierLen is the length of an original identifier in characters.
const IdentifierLen = blake2b.Size256 * 2

// VariantSeparator joins an original identifier and a variant digest.
const VariantSeparator = "~"

// Variant describes a derived representation of a blob, such as a
// thumbnail size. Two variants with the same VariantKey are the same.
type Variant interface {
	VariantKey() string
}

// Fit is a scale-to-fit bounding box.
type Fit struct {
	Width  int
	Height int
}

// VariantKey implements Variant.
func (f Fit) VariantKey() string {
	return fmt.Sprintf("fit:%dx%d", f.Width, f.Height)
}

// Valid reports whether both dimensions are positive.
func (f Fit) Valid() bool {
	return f.Width > 0 && f.Height > 0
}

// Identifier returns the storage identifier for key.
func Identifier(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Derived returns the storage identifier for variant v of key.
func Derived(key string, v Variant) string {
	return Identifier(key) + VariantSeparator + variantDigest(v)
}

// VariantPrefix returns the prefix shared by all derived identifiers of key.
func VariantPrefix(key string) string {
	return Identifier(key) + VariantSeparator
}

// IsDerived reports whether id was produced by Derived.
func IsDerived(id string) bool {
	return strings.Contains(id, VariantSeparator)
}

// OriginalOf returns the original identifier a derived identifier belongs
// to. For an original identifier it returns id unchanged.
func OriginalOf(id string) string {
	if i := strings.Index(id, VariantSeparator); i >= 0 {
		return id[:i]
	}
	return id
}

func variantDigest(v Variant) string {
	// blake2b.New only fails for an oversized key or invalid size.
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err)
	}
	h.Write([]byte("variant\x00"))
	h.Write([]byte(v.VariantKey()))
	return hex.EncodeToString(h.Sum(nil))
}
