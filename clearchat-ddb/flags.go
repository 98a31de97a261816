package clearchatddb

import (
	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	"github.com/urfave/cli/v2"
)

var DDBOpts struct {
	DAXCluster string
	Endpoint   string
	BatchSize  int
}

var DAXClusterFlag = clearchatcli.StringFlag("dax-cluster", "The DAX cluster to connect to", &DDBOpts.DAXCluster)
var EndpointFlag = clearchatcli.StringFlag("dynamodb-endpoint", "Override the DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB Local", &DDBOpts.Endpoint)
var BatchSizeFlag = clearchatcli.IntFlag("batch-size", "Max items per DynamoDB transaction", &DDBOpts.BatchSize, DefaultBatchSize)

var DDBFlags = []cli.Flag{
	DAXClusterFlag,
	EndpointFlag,
	BatchSizeFlag,
}
