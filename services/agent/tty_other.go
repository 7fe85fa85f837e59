//go:build !linux

package agent

import (
	"os"

	"eir-go/errcode"
)

func openTTY(path string, baud int) (*os.File, error) {
	return nil, errcode.Wrap(errcode.Unsupported, "tty", nil)
}
