package pkgmgr

import "errors"

func fileOwner(string) (string, error) {
	return "", errors.New("homebrew is not supported on windows")
}
