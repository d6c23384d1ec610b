package similarity

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

const (
	minhashPermutations = 128
	lshBands            = 32
	shingleSize         = 3
)

// NearDuplicateDetector clusters texts whose MinHash-estimated Jaccard
// similarity over word shingles exceeds the threshold. LSH banding keeps the
// candidate-pair count sub-quadratic: only signatures colliding in at least
// one band are verified.
type NearDuplicateDetector struct {
	threshold float64
	seeds     [minhashPermutations]uint64
}

func NewNearDuplicateDetector(threshold float64) *NearDuplicateDetector {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.4
	}
	d := &NearDuplicateDetector{threshold: threshold}
	// Deterministic permutation seeds from a fixed splitmix64 stream.
	state := uint64(0x1f83d9abfb41bd6b)
	for i := range d.seeds {
		state += 0x9e3779b97f4a7c15
		d.seeds[i] = mix64(state)
	}
	return d
}

// Clusters returns groups of at least two submission ids, each group being a
// set of mutual near-duplicates. Pools smaller than two yield no clusters.
func (d *NearDuplicateDetector) Clusters(pool []domain.PoolEntry) [][]string {
	if len(pool) < 2 {
		return nil
	}

	signatures := make([][]uint64, len(pool))
	for i, entry := range pool {
		signatures[i] = d.signature(entry.Text)
	}

	parent := make([]int, len(pool))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	rows := minhashPermutations / lshBands
	verified := make(map[[2]int]struct{})
	for band := 0; band < lshBands; band++ {
		buckets := make(map[uint64][]int, len(pool))
		for i, sig := range signatures {
			if sig == nil {
				continue
			}
			key := bandKey(sig[band*rows : (band+1)*rows])
			buckets[key] = append(buckets[key], i)
		}
		for _, members := range buckets {
			for x := 0; x < len(members); x++ {
				for y := x + 1; y < len(members); y++ {
					pair := [2]int{members[x], members[y]}
					if _, done := verified[pair]; done {
						continue
					}
					verified[pair] = struct{}{}
					if estimatedJaccard(signatures[pair[0]], signatures[pair[1]]) >= d.threshold {
						ra, rb := find(pair[0]), find(pair[1])
						if ra != rb {
							parent[rb] = ra
						}
					}
				}
			}
		}
	}

	// Emit clusters in pool order so output is deterministic.
	groups := make(map[int][]string)
	order := make([]int, 0, len(pool))
	for i, entry := range pool {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], entry.SubmissionID)
	}

	clusters := make([][]string, 0, len(order))
	for _, root := range order {
		if len(groups[root]) >= 2 {
			clusters = append(clusters, groups[root])
		}
	}
	return clusters
}

// signature computes the MinHash signature of the text's word shingles.
// Texts with no tokens have no signature and never match anything.
func (d *NearDuplicateDetector) signature(text string) []uint64 {
	shingles := shingleSet(text)
	if len(shingles) == 0 {
		return nil
	}
	sig := make([]uint64, minhashPermutations)
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	for shingle := range shingles {
		for i, seed := range d.seeds {
			if h := mix64(shingle ^ seed); h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

func shingleSet(text string) map[uint64]struct{} {
	words := tokenizeWords(text)
	if len(words) == 0 {
		return nil
	}
	out := make(map[uint64]struct{}, len(words))
	if len(words) < shingleSize {
		out[hashShingle(words)] = struct{}{}
		return out
	}
	for i := 0; i+shingleSize <= len(words); i++ {
		out[hashShingle(words[i:i+shingleSize])] = struct{}{}
	}
	return out
}

func hashShingle(words []string) uint64 {
	h := fnv.New64a()
	for i, word := range words {
		if i > 0 {
			_, _ = h.Write([]byte{' '})
		}
		_, _ = h.Write([]byte(word))
	}
	return h.Sum64()
}

func bandKey(rows []uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, row := range rows {
		binary.LittleEndian.PutUint64(buf[:], row)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func estimatedJaccard(a, b []uint64) float64 {
	if a == nil || b == nil {
		return 0
	}
	equal := 0
	for i := range a {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(a))
}

// mix64 is the splitmix64 finalizer, used both for seed generation and as a
// cheap keyed permutation of shingle hashes.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
