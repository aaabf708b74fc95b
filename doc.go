// Package hyperrect builds hierarchical partitions of a fixed
// multidimensional dataset by recursively splitting hyperrectangular regions
// to minimize variance (or maximize correlation) within the children. Each
// tree leaf is a region with cached mean, covariance, and tight/inherited
// bounding boxes, giving an interpretable, queryable piecewise model of the
// data distribution.
//
// Basic usage:
//
//	store, err := hyperrect.NewStore(data, []string{"x", "y", "z"})
//	cfg := hyperrect.DefaultGrowConfig()
//	cfg.SplitDims, _ = store.ResolveDims("x", "y")
//	cfg.EvalDims, _ = store.ResolveDims("z")
//	cfg.MaxDepth = 4
//	tree, err := store.GrowDepthFirst(cfg)
//	// tree.Leaves() are the final regions; query them with Node.Membership,
//	// Node.Stat, or Node.PCA.
//
// Splits are found with an O(n) incremental pass per candidate dimension:
// running mean/variance (or full covariance) aggregates for the left and right
// sides advance by one sample per step, so every possible split point is
// scored without recomputing statistics. Candidate dimensions are evaluated in
// parallel and merged deterministically.
//
// # Growth policies
//
// GrowDepthFirst splits recursively to a depth bound. GrowBestFirst keeps a
// priority queue of leaves ordered by scaled projected variance and splits the
// most promising leaf until a leaf-count bound is reached:
//
//	cfg.MaxLeaves = 32
//	tree, err := store.GrowBestFirst(cfg)
//
// Trees can also be reconstructed deterministically from recorded split
// directives (Store.TreeFromDirectives), and flat models can be assembled from
// externally specified leaves (Store.ModelFromLeaves).
package hyperrect
