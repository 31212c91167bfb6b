// Package stats implements the moving-window byte-rate sampler the
// session driver polls for kbps reporting, plus the duration accumulator
// the play loop uses to enforce request.duration.
package stats

import "time"

const defaultGridNum = int64(5)

// Periodic is a rolling window statistic over gridNum grids of gridPeriod
// seconds each, giving an approximate moving average/max/min/sum.
type Periodic struct {
	gridNum    int64
	gridPeriod int64
	dataGrid   []int64

	avg, max, min, sum int64

	lastIdx      int64
	lastStatTime int64
}

// NewPeriodic creates a rolling statistic over gridNum grids of gridPeriod
// seconds each.
func NewPeriodic(gridNum, gridPeriod int64) *Periodic {
	return &Periodic{
		gridNum:    gridNum + 1,
		gridPeriod: gridPeriod,
		dataGrid:   make([]int64, gridNum+1),
	}
}

func (p *Periodic) expired() bool {
	return time.Now().Unix() > p.lastStatTime+p.gridNum*p.gridPeriod
}

// Stat records one sample.
func (p *Periodic) Stat(val int64) {
	now := time.Now().Unix()
	idx := now % (p.gridNum * p.gridPeriod) / p.gridPeriod

	if now >= p.lastStatTime+p.gridNum*p.gridPeriod {
		for i := int64(0); i < p.gridNum; i++ {
			p.dataGrid[i] = 0
		}
		p.dataGrid[idx] = val
		p.sum, p.max, p.min = val, val, val
		p.lastIdx = idx
		p.avg = p.calcAvg()
		p.lastStatTime = now
		return
	}
	if idx == p.lastIdx && now-p.lastStatTime <= p.gridPeriod {
		p.dataGrid[idx] += val
		p.sum += val
		p.avg = p.calcAvg()
		if val > p.max {
			p.max = val
		}
		if val < p.min {
			p.min = val
		}
		p.lastStatTime = now
		return
	}

	virtualPos := idx
	if virtualPos <= p.lastIdx {
		virtualPos += p.gridNum
	}
	for i := p.lastIdx + 1; i <= virtualPos; i++ {
		actual := i % p.gridNum
		p.sum -= p.dataGrid[actual]
		p.dataGrid[actual] = 0
	}
	p.dataGrid[idx] += val
	p.sum += val
	if val > p.max {
		p.max = val
	}
	if val < p.min {
		p.min = val
	}
	p.lastIdx = idx
	p.avg = p.calcAvg()
	p.lastStatTime = now
}

func (p *Periodic) calcAvg() int64 {
	return (p.sum - p.dataGrid[p.lastIdx]) / (p.gridNum - 1)
}

func (p *Periodic) Avg() int64 {
	if p.expired() {
		return 0
	}
	return p.avg
}

func (p *Periodic) Sum() int64 {
	if p.expired() {
		return 0
	}
	return p.sum
}
