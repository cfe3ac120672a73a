package domain

// speedWindow is the number of samples retained by the estimator. At one
// sample per reporting interval this covers roughly the last minute.
const speedWindow = 60

// SpeedEstimator computes a recent throughput average over a fixed window
// of (bytes, elapsed milliseconds) samples. Once the window fills, the
// oldest sample is overwritten. Not safe for concurrent use; each worker
// owns its own estimator.
type SpeedEstimator struct {
	windowBytes [speedWindow]uint64
	windowTime  [speedWindow]uint64
	index       int
	highWater   int
}

// NewSpeedEstimator creates an empty estimator.
func NewSpeedEstimator() *SpeedEstimator {
	return &SpeedEstimator{}
}

// Add records a sample of bytes transferred over elapsedMS milliseconds.
func (s *SpeedEstimator) Add(bytes, elapsedMS uint64) {
	s.windowBytes[s.index] = bytes
	s.windowTime[s.index] = elapsedMS
	s.index = (s.index + 1) % speedWindow
	if s.highWater < speedWindow {
		s.highWater++
	}
}

// Average returns the throughput in bytes per millisecond, averaged over
// the samples actually recorded. Returns 0 when no samples have been
// added or the recorded samples cover no elapsed time.
func (s *SpeedEstimator) Average() float64 {
	var sumBytes, sumTime uint64
	for i := 0; i < s.highWater; i++ {
		sumBytes += s.windowBytes[i]
		sumTime += s.windowTime[i]
	}
	if sumTime == 0 {
		return 0
	}
	return float64(sumBytes) / float64(sumTime)
}

// BytesPerSecond converts the bytes-per-millisecond average to bytes per
// second.
func (s *SpeedEstimator) BytesPerSecond() float64 {
	return s.Average() * 1000
}
