package engine

// clock numbers the steps of one run. Every run starts its own clock at
// zero, so step numbers depend only on the evaluation order.
type clock struct {
	seq int64
}

// next returns the next step number, starting at 1.
func (c *clock) next() int64 {
	c.seq++
	return c.seq
}
