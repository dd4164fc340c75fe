package rag

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const hashDims = 256

// hashEmbed maps text to a fixed-size vector by hashing tokens into
// buckets. It carries no semantics beyond token overlap, but it is
// deterministic, dependency-free, and good enough for local search when
// no embedding provider is configured.
func hashEmbed(text string) []float32 {
	vec := make([]float32, hashDims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%hashDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
