package vector

import "math"

// Batch is the ephemeral per-invocation scope: every question accepted so far
// for the quiz being assembled. Each bucket loop owns a private Batch in the
// parallel mode, so it needs no locking.
type Batch struct {
	texts   map[string]struct{}
	entries []batchEntry
}

type batchEntry struct {
	text   string
	vector []float32
}

// NewBatch creates an empty batch scope.
func NewBatch() *Batch {
	return &Batch{texts: make(map[string]struct{})}
}

// Add records an accepted question in the batch scope.
func (b *Batch) Add(text string, vec []float32) {
	b.texts[text] = struct{}{}
	b.entries = append(b.entries, batchEntry{text: text, vector: vec})
}

// ContainsExact reports whether the exact text is already in the batch.
func (b *Batch) ContainsExact(text string) bool {
	_, ok := b.texts[text]
	return ok
}

// Nearest returns the most similar batch entry. ok is false when the batch
// is empty.
func (b *Batch) Nearest(vec []float32) (score float64, text string, ok bool) {
	for _, entry := range b.entries {
		s := cosineSimilarity(vec, entry.vector)
		if !ok || s > score {
			score, text, ok = s, entry.text, true
		}
	}
	return score, text, ok
}

// Len returns the number of entries in the batch.
func (b *Batch) Len() int {
	return len(b.entries)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	raw := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return raw
}
