package cache

// BoltDB bucket names
const (
	BucketRenders = "renders" // {RenderKey} -> RenderRecord
	BucketMeta    = "meta"    // schema_version

	KeySchemaVersion = "schema_version"
)

func AllBuckets() []string {
	return []string{BucketRenders, BucketMeta}
}
