package transfer

import (
	"fmt"
	"math"
)

// Capacity is the budget a single consumer can move in one transaction.
// The zero value is an empty finite budget.
type Capacity struct {
	infinite bool
	n        int
}

func Infinite() Capacity { return Capacity{infinite: true} }

func Finite(n int) Capacity {
	if n < 0 {
		n = 0
	}
	return Capacity{n: n}
}

func (c Capacity) IsInfinite() bool { return c.infinite }

// Remaining reports the finite budget left. ok is false for Infinite.
func (c Capacity) Remaining() (n int, ok bool) {
	if c.infinite {
		return 0, false
	}
	return c.n, true
}

func (c Capacity) Empty() bool { return !c.infinite && c.n <= 0 }

// Consume subtracts amount from a finite budget. Callers clamp first; a
// budget never drops below zero.
func (c *Capacity) Consume(amount int) {
	if c.infinite {
		return
	}
	c.n -= amount
	if c.n < 0 {
		c.n = 0
	}
}

// Clamp limits amount to what remains.
func (c Capacity) Clamp(amount int) int {
	if !c.infinite && amount > c.n {
		return c.n
	}
	return amount
}

// Max is the largest amount Clamp can return.
func (c Capacity) Max() int {
	if c.infinite {
		return math.MaxInt32
	}
	return c.n
}

func (c Capacity) String() string {
	if c.infinite {
		return "infinite"
	}
	return fmt.Sprintf("%d", c.n)
}
