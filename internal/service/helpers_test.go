package service

import "context"

type countingInvalidator struct {
	calls map[uint]int
}

func (c *countingInvalidator) Invalidate(ctx context.Context, userID uint) error {
	if c.calls == nil {
		c.calls = map[uint]int{}
	}
	c.calls[userID]++
	return nil
}
