package trade

import (
	"math"
	"slices"
)

// DefaultPriceCapacity is the number of samples kept when no capacity is configured.
const DefaultPriceCapacity = 10

// PriceMove classifies the direction and strength of recent price changes.
type PriceMove int

const (
	StrongDown PriceMove = iota
	Down
	Neutral
	Up
	StrongUp
)

// PriceBuffer is a fixed-capacity rolling window of recent prices.
// The newest sample is last; the oldest is evicted once capacity is exceeded.
type PriceBuffer struct {
	capacity int
	prices   []float64
}

// NewPriceBuffer creates a buffer seeded with prices. Only the newest
// capacity samples are kept.
func NewPriceBuffer(capacity int, prices ...float64) *PriceBuffer {
	if capacity <= 0 {
		capacity = DefaultPriceCapacity
	}
	b := &PriceBuffer{capacity: capacity, prices: make([]float64, 0, capacity)}
	for _, p := range prices {
		b.Push(p)
	}
	return b
}

func (b *PriceBuffer) Push(price float64) {
	if len(b.prices) >= b.capacity {
		b.prices = append(b.prices[:0], b.prices[len(b.prices)-b.capacity+1:]...)
	}
	b.prices = append(b.prices, price)
}

// Prices returns a copy of the samples, oldest first.
func (b *PriceBuffer) Prices() []float64 {
	return slices.Clone(b.prices)
}

func (b *PriceBuffer) Len() int      { return len(b.prices) }
func (b *PriceBuffer) Capacity() int { return b.capacity }

// CurrentPrice is the newest sample, or 0 for an empty buffer.
func (b *PriceBuffer) CurrentPrice() float64 {
	if len(b.prices) == 0 {
		return 0
	}
	return b.prices[len(b.prices)-1]
}

// Min returns the lowest sample, or 0 for an empty buffer.
func (b *PriceBuffer) Min() float64 {
	if len(b.prices) == 0 {
		return 0
	}
	return slices.Min(b.prices)
}

// Max returns the highest sample, or 0 for an empty buffer.
func (b *PriceBuffer) Max() float64 {
	if len(b.prices) == 0 {
		return 0
	}
	return slices.Max(b.prices)
}

// ChangeIndex counts rising steps minus falling steps.
//
//	[3, 2, 1] => -2
//	[2, 2, 1] => -1
//	[1, 2, 2] =>  1
//	[1, 2, 3] =>  2
func (b *PriceBuffer) ChangeIndex() int {
	index := 0
	for i := 1; i < len(b.prices); i++ {
		switch {
		case b.prices[i] > b.prices[i-1]:
			index++
		case b.prices[i] < b.prices[i-1]:
			index--
		}
	}
	return index
}

// Move scales the change index against the buffer capacity onto the
// StrongDown..StrongUp range.
func (b *PriceBuffer) Move() PriceMove {
	ratio := float64(b.ChangeIndex()+b.capacity) / float64(2*b.capacity)
	return PriceMove(math.Floor(ratio*float64(StrongUp) + 0.5))
}

func (b *PriceBuffer) GoesStrongUp() bool   { return b.Move() == StrongUp }
func (b *PriceBuffer) GoesStrongDown() bool { return b.Move() == StrongDown }

// Bands are Bollinger bands. All three are -1 when there is not enough data.
type Bands struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// Sufficient reports whether the bands were computed from enough samples.
func (bb Bands) Sufficient() bool { return bb.Middle != -1 }

// Bollinger computes the simple moving average of the latest period samples
// with upper/lower bands at multiplier standard deviations.
func (b *PriceBuffer) Bollinger(period int, multiplier float64) Bands {
	if period <= 0 || len(b.prices) < period {
		return Bands{Middle: -1, Upper: -1, Lower: -1}
	}
	window := b.prices[len(b.prices)-period:]

	sum := 0.0
	for _, p := range window {
		sum += p
	}
	middle := sum / float64(period)

	variance := 0.0
	for _, p := range window {
		d := p - middle
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(period))

	return Bands{
		Middle: middle,
		Upper:  middle + multiplier*stdDev,
		Lower:  middle - multiplier*stdDev,
	}
}
