package database

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// embeddingDim matches the vector(64) column in the cases table.
const embeddingDim = 64

// SymptomEmbedding hashes a symptom set into a fixed, L2-normalized feature
// vector. The encoding is deterministic, so identical symptom sets always
// land on the same point and nearby sets stay close under cosine distance.
func SymptomEmbedding(symptoms []string) pgvector.Vector {
	vec := make([]float32, embeddingDim)
	for _, symptom := range symptoms {
		symptom = strings.ToLower(strings.TrimSpace(symptom))
		if symptom == "" {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(symptom))
		sum := h.Sum64()
		idx := int(sum % embeddingDim)
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
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
	return pgvector.NewVector(vec)
}
