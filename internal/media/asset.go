package media

import (
	"log/slog"
	"os"
)

// Asset is a display-ready image materialized on local disk for one
// notice. Assets are ephemeral: whoever triggers the publish attempt must
// see them deleted afterwards, success or not.
type Asset struct {
	Path    string
	PageNum int
	// Origin records which resolution path produced the asset:
	// document, attachment, viewer, inline-image, region, fullpage.
	Origin string
}

// Cleanup removes every asset file. Failures are logged, not returned —
// there is nothing useful a caller can do about a leftover temp file.
func Cleanup(assets []Asset, logger *slog.Logger) {
	for _, asset := range assets {
		if asset.Path == "" {
			continue
		}
		if err := os.Remove(asset.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove media asset", "path", asset.Path, "error", err.Error())
		}
	}
}
