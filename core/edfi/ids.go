package edfi

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

// IDGenerator hands out the numeric identifiers (USIs, organization and school ids) of
// Ed-Fi records. Identifiers are unique across the nodes of a deployment as long as every
// process uses its own node number.
type IDGenerator struct {
	node *snowflake.Node
}

func NewIDGenerator(node int64) (*IDGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, errors.Wrapf(err, "creating snowflake node %d", node)
	}
	return &IDGenerator{node: n}, nil
}

func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}
