package indicator

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// desktopNotify is swapped in tests.
var desktopNotify = func(appName string, text string) error {
	if err := beeep.Notify(appName, text, ""); err != nil {
		return fmt.Errorf("desktop notify failed: %w", err)
	}
	return nil
}
