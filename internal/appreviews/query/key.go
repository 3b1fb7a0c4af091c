// Package query keeps per-key fetch state for the app-review client: cached
// data, the last error, whether a request is in flight and how fresh the data
// is. It deduplicates concurrent requests for a key, serves stale data while
// revalidating and discards results from superseded requests.
package query

// Key identifies a cached fetch. It is a comparable value and is used as a
// map key, so it must stay immutable.
type Key struct {
	Resource string
	Param    string
}

// NewKey builds a Key for a resource and an optional parameter
func NewKey(resource string, param ...string) Key {
	k := Key{Resource: resource}
	if len(param) > 0 {
		k.Param = param[0]
	}
	return k
}

func (k Key) String() string {
	if k.Param == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Param
}
