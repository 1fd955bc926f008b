package k8sschema

import "errors"

// ErrSchemaFetch wraps a provider's failure to resolve a resource, whether
// from a cache miss with downloads disabled, a malformed cached document,
// or a failed network fetch. It is always recoverable: callers fall back
// to type-hint inference and record a [log.Event] rather than aborting.
var ErrSchemaFetch = errors.New("k8sschema: schema fetch failed")
