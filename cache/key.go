package cache

import (
	"net/url"
)

// Key identifies one logical query: a resource type plus its canonical
// filter parameters.
type Key struct {
	Resource string
	Params   string
}

// NewKey builds a Key with params encoded in sorted order, so equal filters
// give equal keys.
func NewKey(resource string, params map[string]string) Key {
	if len(params) == 0 {
		return Key{Resource: resource}
	}
	v := make(url.Values, len(params))
	for k, p := range params {
		v.Set(k, p)
	}
	return Key{Resource: resource, Params: v.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Params
}
