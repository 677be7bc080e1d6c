// Package effect defines the deferred completion side-effect machinery: the
// applier interface the resolver drives, and a payload registry binding each
// process type to the typed payload its effect descriptor carries.
package effect
