package migration

import (
	"context"

	"github.com/example/schemasync/internal/persistence/sqldb"
)

// ConnectorDatabase adapts a sqldb.Connector to Database.
func ConnectorDatabase(connector *sqldb.Connector) Database {
	return connectorDatabase{connector: connector}
}

type connectorDatabase struct {
	connector *sqldb.Connector
}

func (d connectorDatabase) Open(ctx context.Context) (Session, error) {
	session, err := d.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (d connectorDatabase) Dialect() BatchDialect {
	return d.connector.Dialect()
}
