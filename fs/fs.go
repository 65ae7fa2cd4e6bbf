// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

//go:embed migrations templates templates/email/_base.gohtml templates/email/_base.txt
var FS embed.FS
