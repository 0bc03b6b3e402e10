package shell

import (
	"bytes"
	"sync"

	"github.com/Cyclone1070/agentgate/internal/tool/helper/content"
)

const binarySample = 8000

// collector captures command output with a size limit and binary detection.
// It is written to from the process's copy goroutine and read after Wait.
type collector struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	maxBytes  int
	truncated bool
	isBinary  bool
	checked   int
}

func newCollector(maxBytes int) *collector {
	return &collector{maxBytes: maxBytes}
}

func (c *collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isBinary {
		return len(p), nil
	}

	if c.checked < binarySample {
		sample := p[:min(len(p), binarySample-c.checked)]
		if content.IsBinary(sample) {
			c.isBinary = true
			c.truncated = true
			return len(p), nil
		}
		c.checked += len(sample)
	}

	remaining := c.maxBytes - c.buffer.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	toWrite := p
	if len(toWrite) > remaining {
		toWrite = toWrite[:remaining]
		c.truncated = true
	}
	c.buffer.Write(toWrite)
	return len(p), nil
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isBinary {
		return "[binary content]"
	}
	return c.buffer.String()
}

func (c *collector) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}
