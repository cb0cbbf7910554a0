package data

type QueryParams struct {
	Limit     int    `json:"limit"`
	NextToken string `json:"nextToken"`
}

func (q *QueryParams) GetLimit() *int32 {
	limit := int32(q.Limit)
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return &limit
}

// QueryResults carries one page plus the opaque token for the next
// one. The token is already client-safe text, so it round-trips the
// JSON boundary unchanged.
type QueryResults[T interface{}] struct {
	Items     []T    `json:"items"`
	NextToken string `json:"nextToken,omitempty"`
}

type NextToken map[string]map[string]string

// Repository is the contract every branch-scoped document collection
// implements. The scope is the submitting branch code;
// item identifiers are assigned by the store at creation.
type Repository[T interface{}, I interface{}] interface {
	Get(branchCode string, itemId string) (T, error)
	Create(branchCode string, input I) (T, error)
	Update(branchCode string, itemId string, input I) (T, error)
	Delete(branchCode string, itemId string) error
	List(branchCode string, params QueryParams) (QueryResults[T], error)
}
