package http

import (
	"net/http"
)

// Method is one of the HTTP methods a request file may name.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
)

// LookupMethod maps a lowercase method name from a request file to a
// Method. The match is case-sensitive; unknown names yield GET and false.
func LookupMethod(name string) (Method, bool) {
	switch name {
	case "get":
		return MethodGet, true
	case "post":
		return MethodPost, true
	case "put":
		return MethodPut, true
	case "patch":
		return MethodPatch, true
	case "delete":
		return MethodDelete, true
	default:
		return MethodGet, false
	}
}

func (m Method) String() string {
	switch m {
	case MethodPost:
		return http.MethodPost
	case MethodPut:
		return http.MethodPut
	case MethodPatch:
		return http.MethodPatch
	case MethodDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}
