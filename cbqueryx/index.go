package cbqueryx

import (
	"fmt"
	"strings"
)

// Index is a row of system:indexes.
type Index struct {
	Name        string     `json:"name"`
	IsPrimary   bool       `json:"is_primary"`
	Using       string     `json:"using"`
	State       IndexState `json:"state"`
	KeyspaceId  string     `json:"keyspace_id"`
	NamespaceId string     `json:"namespace_id"`
	IndexKey    []string   `json:"index_key"`
	Condition   string     `json:"condition"`
	Partition   string     `json:"partition"`
	ScopeId     string     `json:"scope_id"`
	BucketId    string     `json:"bucket_id"`
}

type IndexState string

const (
	IndexStateDeferred  IndexState = "deferred"
	IndexStateBuilding  IndexState = "building"
	IndexStatePending   IndexState = "pending"
	IndexStateOnline    IndexState = "online"
	IndexStateOffline   IndexState = "offline"
	IndexStateAbridged  IndexState = "abridged"
	IndexStateScheduled IndexState = "scheduled"
)

// Keyspace identifies the target of an index statement. ScopeName and
// CollectionName may be empty to target the bucket's default collection.
type Keyspace struct {
	BucketName     string
	ScopeName      string
	CollectionName string
}

func (k Keyspace) String() string {
	if k.ScopeName == "" && k.CollectionName == "" {
		return EncodeIdentifier(k.BucketName)
	}

	scopeName := k.ScopeName
	if scopeName == "" {
		scopeName = "_default"
	}
	collectionName := k.CollectionName
	if collectionName == "" {
		collectionName = "_default"
	}

	return EncodeIdentifier(k.BucketName) + "." + EncodeIdentifier(scopeName) + "." + EncodeIdentifier(collectionName)
}

type CreateIndexOptions struct {
	IsPrimary   bool
	IndexName   string
	Fields      []string
	Deferred    bool
	NumReplicas *uint32
}

func BuildCreateIndexStatement(keyspace Keyspace, opts *CreateIndexOptions) (string, error) {
	var with []string
	if opts.Deferred {
		with = append(with, `"defer_build":true`)
	}
	if opts.NumReplicas != nil {
		with = append(with, fmt.Sprintf(`"num_replica":%d`, *opts.NumReplicas))
	}

	var sb strings.Builder
	if opts.IsPrimary {
		sb.WriteString("CREATE PRIMARY INDEX")
		if opts.IndexName != "" {
			sb.WriteString(" " + EncodeIdentifier(opts.IndexName))
		}
		sb.WriteString(" ON " + keyspace.String())
	} else {
		if opts.IndexName == "" {
			return "", ServerInvalidArgError{Argument: "IndexName", Reason: "must be specified for secondary indexes"}
		}
		if len(opts.Fields) == 0 {
			return "", ServerInvalidArgError{Argument: "Fields", Reason: "at least one field is required"}
		}

		sb.WriteString("CREATE INDEX " + EncodeIdentifier(opts.IndexName))
		sb.WriteString(" ON " + keyspace.String())
		sb.WriteString("(" + strings.Join(opts.Fields, ",") + ")")
	}

	if len(with) > 0 {
		sb.WriteString(" WITH {" + strings.Join(with, ",") + "}")
	}

	return sb.String(), nil
}

func BuildDropIndexStatement(keyspace Keyspace, indexName string, isPrimary bool) string {
	if isPrimary && indexName == "" {
		return "DROP PRIMARY INDEX ON " + keyspace.String()
	}

	if keyspace.ScopeName == "" && keyspace.CollectionName == "" {
		return "DROP INDEX " + EncodeIdentifier(keyspace.BucketName) + "." + EncodeIdentifier(indexName)
	}

	return "DROP INDEX " + EncodeIdentifier(indexName) + " ON " + keyspace.String()
}

func BuildBuildIndexesStatement(keyspace Keyspace, indexNames []string) string {
	encoded := make([]string, len(indexNames))
	for i, name := range indexNames {
		encoded[i] = EncodeIdentifier(name)
	}

	return "BUILD INDEX ON " + keyspace.String() + "(" + strings.Join(encoded, ",") + ")"
}

// BuildGetAllIndexesStatement returns a statement listing the indexes of a
// keyspace along with the named arguments it requires.
func BuildGetAllIndexesStatement(keyspace Keyspace) (string, map[string]string) {
	if keyspace.ScopeName == "" && keyspace.CollectionName == "" {
		return "SELECT `idx`.* FROM system:indexes AS idx" +
				" WHERE ((`bucket_id` IS MISSING AND `keyspace_id`=$bucketName) OR `bucket_id`=$bucketName)" +
				" AND `using`=\"gsi\" ORDER BY is_primary DESC, name ASC",
			map[string]string{"bucketName": keyspace.BucketName}
	}

	scopeName := keyspace.ScopeName
	if scopeName == "" {
		scopeName = "_default"
	}
	collectionName := keyspace.CollectionName
	if collectionName == "" {
		collectionName = "_default"
	}

	return "SELECT `idx`.* FROM system:indexes AS idx" +
			" WHERE `bucket_id`=$bucketName AND `scope_id`=$scopeName AND `keyspace_id`=$collectionName" +
			" AND `using`=\"gsi\" ORDER BY is_primary DESC, name ASC",
		map[string]string{
			"bucketName":     keyspace.BucketName,
			"scopeName":      scopeName,
			"collectionName": collectionName,
		}
}
