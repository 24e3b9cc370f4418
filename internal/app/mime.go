package app

import (
	"log/slog"
	"mime"
)

// staticTypes covers the extensions served from /static that minimal images lack in /etc/mime.types.
var staticTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

func init() {
	registerStaticTypes(staticTypes)
}

func registerStaticTypes(types map[string]string) {
	for ext, typ := range types {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
