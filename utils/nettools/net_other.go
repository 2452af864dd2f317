//go:build !darwin && !linux

package nettools

func readable(int) bool { return false }
