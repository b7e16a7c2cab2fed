// Package parser reads corkscrew request files.
//
// A request file is a YAML list of nodes. Each node may carry request
// attributes (host, resource, method, headers, body, ...) and may nest
// further nodes under the requests key:
//
//	- host: localhost
//	  port: 7878
//	  requests:
//	    - name: ping
//	      resource: /api
//
// The parser only produces the raw tree. Inheritance between nodes is
// handled by the resolver package.
package parser
