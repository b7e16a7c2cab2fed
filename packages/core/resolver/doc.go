// Package resolver flattens a request tree into runnable records.
//
// The tree is walked depth-first in pre-order. Each node produces one
// Record whose unset attributes are taken from the record already built for
// its parent, so inheritance is transitive across any number of levels.
// Records are retained only when they carry both a name and a resource and
// pass the optional name selection.
package resolver
