package tap

import (
	"tap-instagram/pkg/singer"
	"tap-instagram/pkg/stream"
)

// Version is reported by --about
var Version = "dev"

// Discover builds the catalog for reg. Streams named in selected are marked
// selected; an empty list marks all of them.
func Discover(reg *stream.Registry, selected []string) (singer.Catalog, error) {
	sel, err := NewSelection(reg, selected)
	if err != nil {
		return singer.Catalog{}, err
	}
	return singer.BuildCatalog(reg, sel.Selected), nil
}

// About describes the tap
func About() singer.About {
	return singer.NewAbout(Version)
}
