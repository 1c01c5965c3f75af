package column

import (
	"bytes"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/parquet"
)

// Redact replaces every occurrence of each term with replacement in the
// BYTE_ARRAY values of c, applying terms in the given order against the
// progressively updated value. Values that are not valid UTF-8 are left
// untouched. It is a no-op for every other Kind and returns the number of
// values that changed.
func (c *Column) Redact(terms [][]byte, replacement []byte) int {
	if c.kind != KindByteArray {
		return 0
	}

	changed := 0
	for i, value := range c.byteArrays[:c.present] {
		if !utf8.Valid(value) {
			continue
		}

		updated := []byte(value)
		hit := false
		for _, term := range terms {
			if len(term) == 0 || len(term) > len(updated) {
				continue
			}
			if !bytes.Contains(updated, term) {
				continue
			}
			updated = bytes.ReplaceAll(updated, term, replacement)
			hit = true
		}

		if hit {
			c.byteArrays[i] = parquet.ByteArray(updated)
			c.dirty = true
			changed++
		}
	}
	return changed
}

// Matches counts the valid UTF-8 BYTE_ARRAY values that contain at least
// one term. c is not modified.
func (c *Column) Matches(terms [][]byte) int {
	if c.kind != KindByteArray {
		return 0
	}

	n := 0
	for _, value := range c.byteArrays[:c.present] {
		if !utf8.Valid(value) {
			continue
		}
		for _, term := range terms {
			if len(term) > 0 && bytes.Contains(value, term) {
				n++
				break
			}
		}
	}
	return n
}
