package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Entity(uuid);",
	"CREATE INDEX ON :Query(uuid);",
	"CREATE INDEX ON :Contact(key);",
}

const (
	SaveQueryNodeQuery = `
		MERGE (q:Query {uuid: $uuid})
		SET q.type = $type,
			q.value = $value,
			q.submitted_at = $submitted_at,
			q.confidence = $confidence
		RETURN q.uuid AS uuid
	`

	// Fields are stored as a JSON string; nested maps are not valid
	// property values.
	SaveEntityNodeQuery = `
		MATCH (q:Query {uuid: $query_uuid})
		MERGE (e:Entity {uuid: $uuid})
		SET e.name = $name,
			e.keys = $keys,
			e.fields = $fields,
			e.confidence = $confidence,
			e.updated_at = $updated_at
		MERGE (q)-[r:RESOLVED]->(e)
		SET r.confidence = $confidence
		RETURN e.uuid AS uuid
	`

	SaveContactEdgeQuery = `
		MATCH (e:Entity {uuid: $entity_uuid})
		MERGE (c:Contact {key: $key})
		SET c.kind = $kind,
			c.value = $value
		MERGE (e)-[:HAS_CONTACT]->(c)
		RETURN c.key AS key
	`

	// Entities found by different queries meet at shared contacts.
	LinkedEntitiesQuery = `
		MATCH (e:Entity {uuid: $uuid})-[:HAS_CONTACT]->(c:Contact)<-[:HAS_CONTACT]-(other:Entity)
		WHERE other.uuid <> $uuid
		RETURN DISTINCT other.uuid AS uuid, other.name AS name, c.key AS via
		LIMIT $limit
	`
)
