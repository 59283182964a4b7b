package dto

// SearchRequest captures the query parameters of the search endpoints.
type SearchRequest struct {
	Query string   `form:"q" binding:"required,min=3"`
	Scope ScopeRef `form:"scope"`
	Limit int      `form:"limit" binding:"omitempty,min=1,max=500"`
}
