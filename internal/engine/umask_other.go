//go:build !unix

package engine

func currentUmask() int64 { return 0 }
