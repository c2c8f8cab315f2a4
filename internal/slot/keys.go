package slot

// Keys inside a slot namespace. The slot prefix (for example "hitokoto:a:")
// is applied by the namespaced store, never by callers.
const (
	KeyVersion        = "bundle:version"
	KeyUpdatedAt      = "bundle:updated_at"
	KeyVersionRecord  = "bundle:version:record"
	KeyCategories     = "bundle:categories"
	KeySentencesTotal = "bundle:sentences:total"
)

// PointerSuffix is appended to the global prefix to form the live-slot
// pointer key, which lives outside both slot namespaces.
const PointerSuffix = "ab"

// SentinelVersion is the bundle version of a slot that was never written.
const SentinelVersion = "0.0.0"

// CategoryKey is the length index (sorted set: length -> uuid) of a category.
func CategoryKey(key string) string {
	return "bundle:category:" + key
}

// CategoryMinKey holds the shortest sentence length of a category.
func CategoryMinKey(key string) string {
	return CategoryKey(key) + ":min"
}

// CategoryMaxKey holds the longest sentence length of a category.
func CategoryMaxKey(key string) string {
	return CategoryKey(key) + ":max"
}

// SentenceKey holds one sentence record.
func SentenceKey(uuid string) string {
	return "sentence:" + uuid
}
