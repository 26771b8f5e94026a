package idgen

import "github.com/tinode/snowflake"

// snowflakeNode wraps the tinode/snowflake node so the rest of this package
// doesn't depend directly on the third-party type name, matching the
// indirection tinode's own ID helpers use around third-party ID generators.
type snowflakeNode = snowflake.Node

func newSnowflakeNode(nodeID int64) (*snowflakeNode, error) {
	return snowflake.NewNode(nodeID)
}
