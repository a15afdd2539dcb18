package pipeline

// Option configures a Pipeline.
type Option func(*Pipeline)

// OptChunkSize sets the number of records per chunk. Chunk size changes
// the way random numbers are allocated, so it is a part of the run
// settings.
func OptChunkSize(i int) Option {
	return func(p *Pipeline) {
		p.chunkSize = i
	}
}

// OptDefaultUncertainty sets the radius used for records without a
// positive uncertainty.
func OptDefaultUncertainty(f float64) Option {
	return func(p *Pipeline) {
		p.defaultUnc = f
	}
}

// OptJobsNumber sets the number of workers used inside a chunk.
func OptJobsNumber(i int) Option {
	return func(p *Pipeline) {
		if i > 0 {
			p.jobs = i
		}
	}
}

// OptRunID sets the identifier of the run. Use Fingerprint to get the
// same identifier for the same settings.
func OptRunID(s string) Option {
	return func(p *Pipeline) {
		p.runID = s
	}
}

// OptResume makes the run continue after the last saved cursor.
func OptResume(b bool) Option {
	return func(p *Pipeline) {
		p.resume = b
	}
}

// OptOnChunk sets a callback invoked after every committed chunk.
func OptOnChunk(fn func(Progress)) Option {
	return func(p *Pipeline) {
		p.onChunk = fn
	}
}
