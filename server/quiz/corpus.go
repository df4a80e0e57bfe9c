package quiz

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
)

// CorpusEntry is one reference question from the seed dataset.
type CorpusEntry struct {
	QuestionText  string
	CorrectAnswer string
	// Cluster is a topic bucket label. Context retrieval picks neighbors
	// from distinct clusters so the generative source sees contrasting
	// examples instead of three rewordings of the same topic.
	Cluster string
}

// Corpus is the reference question dataset used to seed generation context.
// Loaded once at startup; read-only afterwards.
type Corpus struct {
	entries []CorpusEntry
}

// LoadCorpus reads a CSV reference dataset. The header row names the
// question text, correct answer, and cluster columns; matching is
// case-insensitive on substrings so both "question" and "Question Text"
// headers work.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return parseCorpus(f)
}

func parseCorpus(r io.Reader) (*Corpus, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read corpus header: %w", err)
	}

	questionCol, answerCol, clusterCol := -1, -1, -1
	for i, name := range header {
		switch lower := strings.ToLower(strings.TrimSpace(name)); {
		case strings.Contains(lower, "question"):
			questionCol = i
		case strings.Contains(lower, "answer"):
			answerCol = i
		case strings.Contains(lower, "cluster"):
			clusterCol = i
		}
	}
	if questionCol < 0 {
		return nil, fmt.Errorf("corpus header missing question column: %v", header)
	}

	corpus := &Corpus{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read corpus row: %w", err)
		}
		entry := CorpusEntry{}
		if questionCol < len(row) {
			entry.QuestionText = strings.TrimSpace(row[questionCol])
		}
		if answerCol >= 0 && answerCol < len(row) {
			entry.CorrectAnswer = strings.TrimSpace(row[answerCol])
		}
		if clusterCol >= 0 && clusterCol < len(row) {
			entry.Cluster = strings.TrimSpace(row[clusterCol])
		}
		if entry.QuestionText == "" {
			continue
		}
		corpus.entries = append(corpus.entries, entry)
	}
	return corpus, nil
}

// Len returns the number of corpus entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Sample draws one random seed entry. ok is false for an empty corpus.
func (c *Corpus) Sample(rng *rand.Rand) (CorpusEntry, bool) {
	if len(c.entries) == 0 {
		return CorpusEntry{}, false
	}
	return c.entries[rng.Intn(len(c.entries))], true
}

// Neighbors returns up to k entries drawn from clusters distinct from each
// other and from the seed's cluster. The selection order is randomized so
// repeated calls vary the context.
func (c *Corpus) Neighbors(seed CorpusEntry, k int, rng *rand.Rand) []CorpusEntry {
	if k <= 0 || len(c.entries) == 0 {
		return nil
	}

	order := rng.Perm(len(c.entries))
	seen := map[string]struct{}{seed.Cluster: {}}
	neighbors := []CorpusEntry{}
	for _, i := range order {
		entry := c.entries[i]
		if entry.QuestionText == seed.QuestionText {
			continue
		}
		if _, dup := seen[entry.Cluster]; dup && entry.Cluster != "" {
			continue
		}
		seen[entry.Cluster] = struct{}{}
		neighbors = append(neighbors, entry)
		if len(neighbors) >= k {
			break
		}
	}
	return neighbors
}
