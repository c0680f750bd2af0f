package main

// MergeResult summarizes one completed run
type MergeResult struct {
	Output   string
	Sources  int
	Archives int
	Records  int
}

// HeaderInfo reports what the root rewriter found in the sample fragment
type HeaderInfo struct {
	OriginalRoot string
	Child        string
	Declaration  bool
}
