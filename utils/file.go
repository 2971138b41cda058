package utils

import (
	"path/filepath"
	"runtime"
)

// ResolveFile joins fn onto the module root, letting tests in any package reach shared fixtures
// such as rimage/transform/data.
func ResolveFile(fn string) string {
	//nolint:dogsled
	_, here, _, _ := runtime.Caller(0)
	utilsDir, err := filepath.Abs(filepath.Dir(here))
	if err != nil {
		panic(err)
	}
	return filepath.Join(utilsDir, "..", fn)
}
