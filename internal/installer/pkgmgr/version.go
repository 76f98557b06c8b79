package pkgmgr

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionMatches reports whether the installed version satisfies want.
// want may omit the release ("7.6.2" matches "7.6.2-1").
func versionMatches(installed, want string) bool {
	if installed == want {
		return true
	}
	v, _, _ := strings.Cut(installed, "-")
	return !strings.Contains(want, "-") && v == want
}

// newer reports whether installed is later than want. Upstream versions
// compare as semver; on a tie the releases compare when want names one.
// Versions that do not parse compare as not newer.
func newer(installed, want string) bool {
	iv, ir, _ := strings.Cut(installed, "-")
	wv, wr, hasRelease := strings.Cut(want, "-")
	a, err := semver.NewVersion(iv)
	if err != nil {
		return false
	}
	b, err := semver.NewVersion(wv)
	if err != nil {
		return false
	}
	if c := a.Compare(b); c != 0 || !hasRelease {
		return c > 0
	}
	return compareRelease(ir, wr) > 0
}

// compareRelease compares release strings segment by segment, numerically
// where both segments are numbers ("10" > "9", "1.el7" < "2.el7").
func compareRelease(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				if an > bn {
					return 1
				}
				return -1
			}
		case as[i] != bs[i]:
			return strings.Compare(as[i], bs[i])
		}
	}
	switch {
	case len(as) > len(bs):
		return 1
	case len(as) < len(bs):
		return -1
	}
	return 0
}
