package driver

import "strings"

// separator joins the configuration name and logical keys.
const separator = "/"

// namespace composes physical keys from logical ones. Keys aren't escaped, so
// logical keys containing the separator are the caller's responsibility.
type namespace struct {
	prefix string
}

func newNamespace(name string) namespace {
	return namespace{prefix: name + separator}
}

func (ns namespace) key(logical string) string {
	return ns.prefix + logical
}

func (ns namespace) strip(physical string) (string, bool) {
	return strings.CutPrefix(physical, ns.prefix)
}
