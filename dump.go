package svm

import "github.com/davecgh/go-spew/spew"

// Dump returns a deep, field-by-field dump of os's planes, for use in test
// failure output and ad hoc debugging. It is not meant for production
// logging — spew.Sdump walks the whole object graph, including every byte
// of the concrete store.
func (os *ObjectState) Dump() string {
	return (&spew.ConfigState{Indent: " ", DisableMethods: true}).Sdump(os)
}
