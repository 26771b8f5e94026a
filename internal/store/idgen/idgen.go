// Package idgen implements spec.md §4.5's "Identifier & sequence
// allocation": message IDs only need to be unique and opaque to clients.
// Two strategies are provided behind one interface, as the design notes in
// spec.md §9 anticipate.
package idgen

// Generator allocates globally unique, opaque message IDs.
type Generator interface {
	NextMessageID() (int64, error)
}

// SnowflakeGenerator backs message-ID allocation with tinode/snowflake (the
// teacher's own dependency) when no auxiliary KV store is configured.
type SnowflakeGenerator struct {
	node *snowflakeNode
}

// NewSnowflakeGenerator builds a generator for the given worker/node id.
// Node ids must be unique per running server process to avoid collisions.
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	n, err := newSnowflakeNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &SnowflakeGenerator{node: n}, nil
}

func (g *SnowflakeGenerator) NextMessageID() (int64, error) {
	return g.node.Generate().Int64(), nil
}
