// Package graph defines the design graph produced by evaluating a part
// script. The graph is an immutable DAG of primitives, placements,
// booleans and joint features, rooted at named parts.
package graph
