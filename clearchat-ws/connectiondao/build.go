package connectiondao

import "github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

// Tables names the tables backing the registry. Rooms is only read, to check
// the room exists when a connection registers.
type Tables struct {
	Connections      string
	UserConnections  string
	AdminConnections string
	Rooms            string
}

// Build creates a registry using the standard table names for the given
// environment.
func Build(api dynamodbiface.DynamoDBAPI, env string, batchSize int) *DAO {
	return New(api, TableNames(env), batchSize)
}

func TableNames(env string) Tables {
	return Tables{
		Connections:      env + "-clearchat--connections",
		UserConnections:  env + "-clearchat--user-connections",
		AdminConnections: env + "-clearchat--admin-connections",
		Rooms:            env + "-clearchat--rooms",
	}
}
