//go:build !unix

package logging

func (w *RotatingWriter) lock() error { return nil }

func (w *RotatingWriter) unlock() {}
