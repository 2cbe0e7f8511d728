//go:build !windows

package sysproxy

func notifyWinINet() error { return nil }
