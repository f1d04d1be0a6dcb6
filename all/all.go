// Package all imports all supported ecosystem sources, registering them
// for use with trustscore.NewScanner and trustscore.New.
//
// Import this package for its side effects:
//
//	import _ "github.com/git-pkgs/trustscore/all"
package all

import (
	_ "github.com/git-pkgs/trustscore/internal/docker"
	_ "github.com/git-pkgs/trustscore/internal/npm"
	_ "github.com/git-pkgs/trustscore/internal/pypi"
)
