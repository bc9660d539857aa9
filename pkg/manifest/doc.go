// Package manifest loads graph declarations from HCL files.
//
// A manifest declares static input nodes with their seed values and derived
// nodes naming a provider from a Go-side provider table:
//
//	input "price" {
//	  type  = number
//	  value = 2.5
//	}
//
//	input "qty" {
//	  type  = number
//	  value = 4
//	}
//
//	node "total" {
//	  provider = "product"
//	  params   = [price, qty]
//	  type     = number
//	}
//
// Types use HCL type constraint syntax (string, number, bool, list(...),
// map(...), object({...}), any). Parameters may reference any input or node
// declared in the same set of files, in any order. Loading produces a
// graph.Table ready for Graph.Apply.
package manifest
