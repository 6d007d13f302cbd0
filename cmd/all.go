package cmd

import (
	_ "bridge-keeper/cmd/check"
	_ "bridge-keeper/cmd/publish"
	_ "bridge-keeper/cmd/root"
	_ "bridge-keeper/cmd/server"
	_ "bridge-keeper/cmd/tunnel"
	_ "bridge-keeper/cmd/up"
)
