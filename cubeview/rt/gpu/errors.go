package gpu

import (
	"fmt"
	"strings"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"
)

// classifySurfaceError maps a GetCurrentTexture failure onto the core error
// taxonomy. The binding reports the surface status only in the message,
// as "surface status <Status>".
func classifySurfaceError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "lost"):
		return fmt.Errorf("%w: %v", core.ErrSurfaceLost, err)
	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "outofmemory"):
		return fmt.Errorf("%w: %v", core.ErrOutOfMemory, err)
	}
	return fmt.Errorf("%w: %v", core.ErrTransientPresent, err)
}
