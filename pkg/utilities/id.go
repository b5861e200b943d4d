package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewRequestID returns a snowflake ID from the process-wide node, or a KSUID
// when no node could be created. The node ID comes from SNOWFLAKE_NODE
// (default 1).
func NewRequestID() string {
	nodeOnce.Do(func() {
		id := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			id = v
		}
		node, _ = snowflake.NewNode(id)
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
