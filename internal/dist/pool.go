package dist

// DefaultBlock is the pool growth increment. Samples are 8 bytes each, so one
// block per parameter stays well under the per-patient memory budget at scale.
const DefaultBlock = 1024

// Pool pre-generates samples from one sampler in blocks and serves them by
// index. Sample i is always the i-th draw of the underlying stream, so a
// patient indexed into the pool gets the same value regardless of how many
// other patients the run contains.
type Pool struct {
	sampler Sampler
	block   int
	samples []float64
}

// NewPool wraps a sampler in an indexed pool. A block size <= 0 uses
// DefaultBlock.
func NewPool(s Sampler, block int) *Pool {
	if block <= 0 {
		block = DefaultBlock
	}
	return &Pool{sampler: s, block: block}
}

// At returns sample i, generating further blocks as needed.
func (p *Pool) At(i uint64) float64 {
	for uint64(len(p.samples)) <= i {
		start := len(p.samples)
		p.samples = append(p.samples, make([]float64, p.block)...)
		for j := start; j < len(p.samples); j++ {
			p.samples[j] = p.sampler.Rand()
		}
	}
	return p.samples[i]
}

// Len reports how many samples have been materialized.
func (p *Pool) Len() int { return len(p.samples) }
