package models

// SearchHit is one search result: the matching entry plus its resolved
// hierarchy context.
type SearchHit struct {
	Entry   FileEntry        `json:"entry"`
	Context HierarchyContext `json:"context"`
}
