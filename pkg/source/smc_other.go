//go:build !darwin

package source

import pkgerrors "github.com/pkg/errors"

func openSMC() (Source, error) {
	return nil, pkgerrors.New("the smc source is only available on macOS")
}
