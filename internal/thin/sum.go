// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"context"
	"path/filepath"
)

// ThinSum builds the thin artifact if needed and returns its digest.
func (b *Builder) ThinSum(ctx context.Context, form string) (string, error) {
	return b.sum(ctx, VariantThin, form)
}

// MinSum builds the min artifact if needed and returns its digest.
func (b *Builder) MinSum(ctx context.Context, form string) (string, error) {
	return b.sum(ctx, VariantMin, form)
}

// Sum is ThinSum or MinSum depending on v.
func (b *Builder) Sum(ctx context.Context, v Variant, form string) (string, error) {
	return b.sum(ctx, v, form)
}

// sum performs one generation attempt and one digest; form is handed to the
// digest unmodified.
func (b *Builder) sum(ctx context.Context, v Variant, form string) (string, error) {
	path, err := b.generate(ctx, v)
	if err != nil {
		return "", err
	}
	return b.hash(path, form)
}

// SlotPath is the canonical artifact path of a variant.
func SlotPath(cacheDir string, v Variant, c Compression) string {
	return filepath.Join(cacheDir, string(v), string(v)+"."+c.Extension())
}

// ThinPath is the default thin artifact path in cacheDir.
func ThinPath(cacheDir string) string {
	return SlotPath(cacheDir, VariantThin, DefaultCompression)
}

// MinPath is the default min artifact path in cacheDir.
func MinPath(cacheDir string) string {
	return SlotPath(cacheDir, VariantMin, DefaultCompression)
}
