package postgres

import (
	"context"
	"fmt"
	"strings"
)

const schemaQuery = `
SELECT table_schema, table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name, ordinal_position`

const schemaQueryWithSystem = `
SELECT table_schema, table_name, column_name, data_type
FROM information_schema.columns
ORDER BY table_schema, table_name, ordinal_position`

// FetchSchema renders the current database schema in the deterministic text
// format the validator and planner consume:
//
//	TABLE <schema>.<table>
//	  - <column> (<pg_type>)
//
// with a blank line between tables, ordered by schema, table, and column
// ordinal.
func (c *Client) FetchSchema(ctx context.Context) (string, error) {
	return c.fetchSchema(ctx, false)
}

// FetchSchemaIncludingSystem also lists pg_catalog and information_schema
// relations.
func (c *Client) FetchSchemaIncludingSystem(ctx context.Context) (string, error) {
	return c.fetchSchema(ctx, true)
}

func (c *Client) fetchSchema(ctx context.Context, includeSystem bool) (string, error) {
	query := schemaQuery
	if includeSystem {
		query = schemaQueryWithSystem
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("fetch schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out strings.Builder
	currentTable := ""
	for rows.Next() {
		var schemaName, tableName, columnName, dataType string
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType); err != nil {
			return "", fmt.Errorf("scan schema row: %w", err)
		}
		table := schemaName + "." + tableName
		if table != currentTable {
			if currentTable != "" {
				out.WriteString("\n\n")
			}
			out.WriteString("TABLE " + table)
			currentTable = table
		}
		out.WriteString("\n  - " + columnName + " (" + dataType + ")")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate schema rows: %w", err)
	}

	return out.String(), nil
}
